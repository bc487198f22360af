package fiuu

import "github.com/paybridge/paybridge/connector"

func init() {
	connector.Register(connectorName, New)
}
