package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPNotifier posts a learner-facing notification to the notification
// service's POST /notifications/create endpoint.
type HTTPNotifier struct {
	base string
	http *http.Client
}

func NewHTTPNotifier(baseURL string, client *http.Client) *HTTPNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPNotifier{base: strings.TrimSuffix(baseURL, "/"), http: client}
}

type notificationReq struct {
	UserIDs []string `json:"user_ids"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
}

func (n *HTTPNotifier) Name() string { return "http" }

func (n *HTTPNotifier) Deliver(ctx context.Context, ev GradedEvent) error {
	outcome := "did not pass"
	if ev.Passed {
		outcome = "passed"
	}
	body, err := json.Marshal(notificationReq{
		UserIDs: []string{ev.UserID},
		Type:    "GRADE",
		Title:   "Quiz graded",
		Message: fmt.Sprintf("Your quiz attempt was graded: %.2f%%, you %s.", ev.Percentage, outcome),
		Data:    ev,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/notifications/create", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := n.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("notification service: %s", res.Status)
	}
	return nil
}
