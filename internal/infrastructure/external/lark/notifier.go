package lark

import (
	"context"
	"encoding/json"
	"fmt"

	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/port"
)

const defaultReceiveIDType = "chat_id"

// MessageCreator is the IM call the notifier makes
type MessageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// Notifier implements port.Notifier by posting text messages to one chat
type Notifier struct {
	messages      MessageCreator
	receiveID     string
	receiveIDType string
	logger        *zap.Logger
}

// NewNotifier creates a notifier on the SDK client
func NewNotifier(sdk *SDKClient, cfg Config, logger *zap.Logger) *Notifier {
	return NewNotifierWithCreator(sdk.GetClient().Im.Message, cfg, logger)
}

// NewNotifierWithCreator creates a notifier on the given message API
func NewNotifierWithCreator(messages MessageCreator, cfg Config, logger *zap.Logger) *Notifier {
	idType := cfg.ReceiveIDType
	if idType == "" {
		idType = defaultReceiveIDType
	}
	return &Notifier{
		messages:      messages,
		receiveID:     cfg.ReceiveID,
		receiveIDType: idType,
		logger:        logger,
	}
}

// Notify sends message as plain text
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if n.receiveID == "" {
		return fmt.Errorf("receive id cannot be empty")
	}
	if message == "" {
		return fmt.Errorf("message cannot be empty")
	}

	body, err := messageBody(n.receiveID, message)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(n.receiveIDType).
		Body(body).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("receive_id", n.receiveID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("receive_id", n.receiveID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	messageID := ""
	if resp.Data != nil && resp.Data.MessageId != nil {
		messageID = *resp.Data.MessageId
	}
	n.logger.Info("Notification sent",
		zap.String("message_id", messageID),
		zap.Int("length", len(message)))

	return nil
}

// messageBody builds a plain text message for one receiver
func messageBody(receiveID, text string) (*larkim.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(receiveID).
		MsgType("text").
		Content(string(content)).
		Build(), nil
}

// Verify interface compliance
var _ port.Notifier = (*Notifier)(nil)
