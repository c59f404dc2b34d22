package email

import (
	"context"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, email, jobID, participantID, errorMsg string) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)

	subject := fmt.Sprintf("Gesture dataset - segmentation failed [Job %s]", jobID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"The segmentation run for a participant recording has permanently failed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Participant: %s\r\n"+
			"Error: %s\r\n\r\n"+
			"Check the recording logs for this participant and re-queue the run.\r\n\r\n"+
			"-- gesture segmentation service",
		jobID, participantID, errorMsg,
	)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.from, email, subject, body,
	)

	err := smtp.SendMail(addr, nil, n.from, []string{email}, []byte(msg))
	if err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", email),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", email),
		zap.String("job_id", jobID),
	)
	return nil
}
