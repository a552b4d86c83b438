package notify

import (
	"fmt"

	"github.com/framesnap/framesnap/internal/ledger"
)

// Render produces the email subject and HTML body for a notification message.
// COMPLETED includes the output location, ERROR includes the failure detail
// and anything else becomes a generic status update.
func Render(msg Message) (subject, body string) {
	switch msg.Status {
	case ledger.StatusCompleted:
		subject = "Video Processing Completed"
		body = fmt.Sprintf(
			"<h2>Video Processing Completed Successfully</h2>"+
				"<p>Your video (ID: %s) has been processed successfully.</p>"+
				"<p>You can download your processed frames at: %s</p>"+
				"<br><p>Thank you for using our service!</p>",
			msg.VideoID, msg.OutputLocation,
		)
	case ledger.StatusError:
		subject = "Video Processing Failed"
		body = fmt.Sprintf(
			"<h2>Video Processing Failed</h2>"+
				"<p>Unfortunately, there was an error processing your video (ID: %s).</p>"+
				"<p>Error details: %s</p>"+
				"<p>Please try uploading your video again or contact support if the problem persists.</p>",
			msg.VideoID, msg.ErrorDetail,
		)
	default:
		subject = "Video Processing Update"
		body = fmt.Sprintf(
			"<h2>Video Processing Status Update</h2>"+
				"<p>Your video (ID: %s) status has been updated to: %s</p>",
			msg.VideoID, msg.Status,
		)
	}
	return subject, body
}
