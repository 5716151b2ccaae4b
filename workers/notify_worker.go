package workers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"badge-award-system/models"
	"badge-award-system/utils"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// WebhookNotifier POSTs award events to the external delivery service
// (email gateway / webhook fan-out). Delivery is fire-and-forget: every
// notice runs on its own goroutine with a capped exponential retry, and
// failures only ever reach the log.
type WebhookNotifier struct {
	url          string
	serviceToken string
	client       *http.Client
	log          *zap.SugaredLogger
}

func NewWebhookNotifier(url, serviceToken string, log *zap.SugaredLogger) *WebhookNotifier {
	return &WebhookNotifier{
		url:          url,
		serviceToken: serviceToken,
		client:       utils.HTTPClient,
		log:          log,
	}
}

func (n *WebhookNotifier) Notify(userID string, badge *models.Badge, instance *models.BadgeInstance) {
	go n.deliver(userID, badge, instance)
}

func (n *WebhookNotifier) deliver(userID string, badge *models.Badge, instance *models.BadgeInstance) {
	event := "badge.reserved" // a code is waiting to be claimed
	payload := map[string]interface{}{
		"user_id":     userID,
		"badge":       badge.ShortName,
		"badge_name":  badge.Name,
		"image_url":   badge.ImageURL,
		"notified_at": time.Now().UTC(),
	}
	if instance != nil {
		event = "badge.awarded"
		payload["instance_id"] = instance.ID
		payload["assertion_hash"] = instance.Hash
		payload["issued_on"] = instance.IssuedOn
	}
	payload["event"] = event

	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Errorw("notification payload marshal failed", "event", event, "err", err)
		return
	}

	op := func() error {
		req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if n.serviceToken != "" {
			req.Header.Set("Authorization", "Bearer "+n.serviceToken)
		}
		resp, err := n.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("notifier returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("notifier rejected event: %d", resp.StatusCode))
		}
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(op, bo); err != nil {
		n.log.Warnw("notification delivery failed", "event", event, "user", userID, "badge", badge.ShortName, "err", err)
		return
	}
	n.log.Debugw("notification delivered", "event", event, "user", userID, "badge", badge.ShortName)
}
