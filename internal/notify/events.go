package notify

// Notification methods originating from this server.
const (
	MethodDiffAccepted  = "ide/diffAccepted"
	MethodDiffRejected  = "ide/diffRejected"
	MethodDiffClosed    = "ide/diffClosed"
	MethodContextUpdate = "ide/contextUpdate"
)
