package connector

// Flow is the closed set of payment-lifecycle operations a connector can
// implement. Each flow is a zero-sized marker type; the pairing between a
// flow and its resource/request/response types is fixed by the Operation
// instantiations on the Connector interface, so an invalid combination does
// not compile.
type Flow interface {
	flowName() string
}

// Payment flows.
type (
	Authorize          struct{}
	PSync              struct{}
	Capture            struct{}
	Void               struct{}
	SetupMandate       struct{}
	CreateOrder        struct{}
	CreateSessionToken struct{}
	RepeatPayment      struct{}
)

// Refund flows.
type (
	Refund struct{}
	RSync  struct{}
)

// Dispute flows.
type (
	Accept         struct{}
	DefendDispute  struct{}
	SubmitEvidence struct{}
)

func (Authorize) flowName() string          { return "Authorize" }
func (PSync) flowName() string              { return "PSync" }
func (Capture) flowName() string            { return "Capture" }
func (Void) flowName() string               { return "Void" }
func (SetupMandate) flowName() string       { return "SetupMandate" }
func (CreateOrder) flowName() string        { return "CreateOrder" }
func (CreateSessionToken) flowName() string { return "CreateSessionToken" }
func (RepeatPayment) flowName() string      { return "RepeatPayment" }
func (Refund) flowName() string             { return "Refund" }
func (RSync) flowName() string              { return "RSync" }
func (Accept) flowName() string             { return "Accept" }
func (DefendDispute) flowName() string      { return "DefendDispute" }
func (SubmitEvidence) flowName() string     { return "SubmitEvidence" }

// FlowName returns the name of a flow marker type without needing a value.
func FlowName[F Flow]() string {
	var f F
	return f.flowName()
}
