package scanner

import (
	"errors"
	"fmt"
)

// Tone is how loudly an outcome should be shown to the operator.
type Tone int

const (
	ToneSuccess Tone = iota
	ToneWarning
	ToneError
)

// Notice is the operator-facing summary of an outcome.
type Notice struct {
	Tone    Tone
	Title   string
	Message string
}

// Present maps an attempt to what the gate operator sees.
func Present(a Attempt) Notice {
	switch a.Status {
	case StatusSuccess:
		msg := "Ticket has been successfully validated."
		if a.Result != nil {
			msg = fmt.Sprintf("Ticket %s for %s has been successfully validated.", a.Result.TicketID, a.Result.Email)
		}
		return Notice{Tone: ToneSuccess, Title: "Ticket Validated", Message: msg}
	case StatusRejected:
		switch a.Reason {
		case RejectUnassigned:
			return Notice{Tone: ToneWarning, Title: "Unassigned Ticket", Message: "This ticket has not been assigned to anyone yet. Check manually."}
		case RejectAlreadyUsed:
			return Notice{Tone: ToneError, Title: "Already Used", Message: "This ticket has already been used for entry."}
		default:
			return Notice{Tone: ToneError, Title: "Invalid Ticket", Message: "This QR code is not a valid ticket."}
		}
	case StatusPending:
		return Notice{Tone: ToneWarning, Title: "Validating", Message: "Checking ticket..."}
	}
	return Notice{Tone: ToneError, Title: "Validation Error", Message: "Failed to validate ticket. Scan again to retry."}
}

// StartErrorMessage turns a Controller.Start failure into an actionable line.
func StartErrorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Camera permission denied. Please enable camera access and try again."
	case errors.Is(err, ErrSurfaceUnavailable):
		return "Viewfinder did not become ready. Press s to try again."
	case errors.Is(err, ErrActive):
		return "Scanner is already running."
	}
	return "Failed to start camera: " + err.Error()
}
