package zosmf

// MessageDefinition is user-facing text shared by the client and callers that print
// diagnostics.
type MessageDefinition struct {
	Message string
}

// ZosmfMessages holds the fixed messages of the status API.
var ZosmfMessages = struct {
	MissingSession             MessageDefinition
	InvalidSession             MessageDefinition
	InvalidHostName            MessageDefinition
	InvalidPort                MessageDefinition
	ImproperRejectUnauthorized MessageDefinition
	RequestTimeout             MessageDefinition
}{
	MissingSession: MessageDefinition{
		Message: "Session was not supplied.",
	},
	InvalidSession: MessageDefinition{
		Message: "The session is not valid.",
	},
	InvalidHostName: MessageDefinition{
		Message: "Unable to resolve the z/OSMF host name. Check the value of the host.",
	},
	InvalidPort: MessageDefinition{
		Message: "Unable to connect to z/OSMF. Check the value of the port and that z/OSMF is running.",
	},
	ImproperRejectUnauthorized: MessageDefinition{
		Message: "The z/OSMF certificate could not be verified. Supply a trusted CA or set reject_unauthorized to false.",
	},
	RequestTimeout: MessageDefinition{
		Message: "z/OSMF did not respond before the request timed out.",
	},
}

// Hint returns the caller-facing diagnostic for a failure kind, if there is one.
func Hint(kind ErrorKind) (MessageDefinition, bool) {
	switch kind {
	case KindMissingSession:
		return ZosmfMessages.MissingSession, true
	case KindInvalidSession:
		return ZosmfMessages.InvalidSession, true
	case KindHostResolution:
		return ZosmfMessages.InvalidHostName, true
	case KindConnectionRefused:
		return ZosmfMessages.InvalidPort, true
	case KindCertificateValidation:
		return ZosmfMessages.ImproperRejectUnauthorized, true
	case KindTimeout:
		return ZosmfMessages.RequestTimeout, true
	default:
		return MessageDefinition{}, false
	}
}
