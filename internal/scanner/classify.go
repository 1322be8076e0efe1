package scanner

import (
	"errors"
	"strings"

	"github.com/ticketdawg/checkin/pkg/client"
)

// rejectPatterns maps API error messages to rejection reasons, in match order.
var rejectPatterns = []struct {
	substr string
	reason RejectReason
}{
	{"invalid qr code", RejectNotATicket},
	{"not assigned", RejectUnassigned},
	{"already used", RejectAlreadyUsed},
}

// Classify turns the error of a validation call into a status. Only an API
// response with a recognised reason is a rejection; everything else,
// including unknown reasons and server errors, is Errored.
func Classify(err error) (Status, RejectReason) {
	if err == nil {
		return StatusSuccess, ""
	}
	var he *client.HTTPError
	if !errors.As(err, &he) {
		return StatusErrored, ""
	}
	if he.StatusCode >= 500 {
		return StatusErrored, ""
	}
	msg := strings.ToLower(he.Message)
	for _, p := range rejectPatterns {
		if strings.Contains(msg, p.substr) {
			return StatusRejected, p.reason
		}
	}
	return StatusErrored, ""
}
