package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/LukasGX/Untis-App-API/internal/models"
)

const newRequestTemplate = `
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #ddd; border-radius: 5px; }
        .button { display: inline-block; padding: 10px 20px; background-color: #03dac6; color: black; text-decoration: none; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <p><strong>{{.Username}}</strong> asked to join the chat of <strong>{{.School}}</strong>.</p>
        <p>Request #{{.ID}}, received {{.CreatedAt.Format "2006-01-02 15:04"}} UTC.</p>
        <p><a href="/admin/requests" class="button">Review requests</a></p>
    </div>
</body>
</html>
`

var newRequestTmpl = template.Must(template.New("new_request").Parse(newRequestTemplate))

const sendTimeout = 30 * time.Second

// Notifier tells the administrator about new access requests. Delivery runs
// in the background and failures are only logged.
type Notifier struct {
	mailer Mailer
	to     string
	wg     sync.WaitGroup
}

// NewNotifier returns a Notifier mailing to. An empty address disables it.
func NewNotifier(mailer Mailer, to string) *Notifier {
	return &Notifier{mailer: mailer, to: to}
}

func (n *Notifier) NotifyNewRequest(req *models.AccessRequest) {
	if n == nil || n.to == "" {
		return
	}

	var body bytes.Buffer
	if err := newRequestTmpl.Execute(&body, req); err != nil {
		slog.Error("rendering notification", "error", err)
		return
	}
	msg := Message{
		To:       n.to,
		Subject:  fmt.Sprintf("New access request: %s (%s)", req.Username, req.School),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("%s asked to join the chat of %s (request #%d).", req.Username, req.School, req.ID),
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := n.mailer.Send(ctx, msg); err != nil {
			slog.Error("sending notification", "to", n.to, "error", err)
		}
	}()
}

// Wait blocks until every pending notification has been handled.
func (n *Notifier) Wait() {
	if n != nil {
		n.wg.Wait()
	}
}
