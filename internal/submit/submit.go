// internal/submit/submit.go
package submit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/HosicoLabs/Litterbox/internal/logger"
	"github.com/HosicoLabs/Litterbox/internal/utils/metrics"
	"github.com/HosicoLabs/Litterbox/internal/wallet"
)

var (
	ErrUserCancelled      = errors.New("transaction cancelled by user")
	ErrTransactionFailed  = errors.New("transaction failed")
	ErrInvalidTransaction = errors.New("invalid transaction encoding")
)

// Signer rejections containing any of these are user cancellations.
var cancellationPhrases = []string{
	"User rejected",
	"cancelled",
	"denied",
	"User declined",
	"Transaction cancelled",
}

// IsCancellation reports whether a signer message reads as a user rejection.
func IsCancellation(msg string) bool {
	for _, phrase := range cancellationPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// Classify maps a signer error to ErrUserCancelled or ErrTransactionFailed.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsCancellation(err.Error()) {
		return ErrUserCancelled
	}
	return fmt.Errorf("%w: %s", ErrTransactionFailed, err.Error())
}

// NormalizeSignature returns the display form of a signature.
func NormalizeSignature(sig wallet.RawSignature) (string, error) {
	if sig.Text != "" {
		return sig.Text, nil
	}
	if len(sig.Bytes) == 0 {
		return "", errors.New("signer returned an empty signature")
	}
	return base58.Encode(sig.Bytes), nil
}

// Controller hands a compiled transaction to the signer exactly once.
type Controller struct {
	signer  wallet.Signer
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New создаёт контроллер отправки.
func New(signer wallet.Signer, logger *zap.Logger, m *metrics.Collector) *Controller {
	return &Controller{
		signer:  signer,
		logger:  logger.Named("submit"),
		metrics: m,
	}
}

// SubmitEncoded decodes a base64 wire transaction and submits it.
func (c *Controller) SubmitEncoded(ctx context.Context, encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return c.Submit(ctx, raw)
}

// Submit signs and sends raw once. Rejections come back as ErrUserCancelled
// or wrapped ErrTransactionFailed; there is no retry.
func (c *Controller) Submit(ctx context.Context, raw []byte) (string, error) {
	sig, err := c.signer.SignAndSend(ctx, raw)
	if err != nil {
		classified := Classify(err)
		if errors.Is(classified, ErrUserCancelled) {
			c.metrics.RecordSubmission(metrics.OutcomeCancelled)
			c.logger.Info("Transaction cancelled by user", zap.Error(err))
		} else {
			c.metrics.RecordSubmission(metrics.OutcomeFailed)
			c.logger.Error("Transaction failed", zap.Error(err))
		}
		return "", classified
	}

	text, err := NormalizeSignature(sig)
	if err != nil {
		c.metrics.RecordSubmission(metrics.OutcomeFailed)
		return "", fmt.Errorf("%w: %s", ErrTransactionFailed, err.Error())
	}
	c.logger.Info("Transaction submitted", zap.String("signature", logger.ShortenSignature(text)))
	return text, nil
}
