// Package digest 把一轮采集结果渲染成 HTML 邮件并发送
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/newsdigest/internal/processor"
	"go.uber.org/zap"
)

// ErrSend 发送失败（SMTP 连接、认证、投递），只记录日志不重试
var ErrSend = errors.New("send digest")

// Sender 发信通道
type Sender interface {
	Send(ctx context.Context, subject, htmlBody, recipient string) error
}

// Outcome 一次投递的结果
type Outcome string

const (
	OutcomeSent          Outcome = "sent"
	OutcomeNoArticles    Outcome = "skipped_no_articles"
	OutcomeNotConfigured Outcome = "skipped_not_configured"
	OutcomeFailed        Outcome = "failed"
)

// Service 每轮最多调用一次 Sender
type Service struct {
	sender    Sender
	recipient string
	// missing 缺失的配置项，非空时跳过发送
	missing []string
	log     *zap.Logger
}

// NewService sender 为 nil 或 missing 非空时只渲染不发送
func NewService(sender Sender, recipient string, missing []string, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if sender == nil && len(missing) == 0 {
		missing = []string{"sender"}
	}
	return &Service{sender: sender, recipient: recipient, missing: missing, log: log}
}

// Deliver 没有文章时直接返回，不发空邮件；缺少发信配置时记录原因后跳过
func (s *Service) Deliver(ctx context.Context, sourceName string, articles []processor.Article, now time.Time) (Outcome, error) {
	log := s.log.With(zap.String("source", sourceName))
	if len(articles) == 0 {
		log.Info("no new articles, skip sending")
		return OutcomeNoArticles, nil
	}

	body, err := Render(sourceName, articles, now)
	if err != nil {
		log.Error("render digest failed", zap.Error(err))
		return OutcomeFailed, err
	}
	log.Debug("digest preview", zap.String("html", body))

	if len(s.missing) > 0 {
		log.Warn("mail settings incomplete, skip sending", zap.String("missing", strings.Join(s.missing, ",")))
		return OutcomeNotConfigured, nil
	}

	subject := Subject(sourceName, now)
	if err := s.sender.Send(ctx, subject, body, s.recipient); err != nil {
		log.Error("send digest failed", zap.String("subject", subject), zap.Error(err))
		return OutcomeFailed, fmt.Errorf("%w: %v", ErrSend, err)
	}
	log.Info("digest sent", zap.String("subject", subject), zap.Int("articles", len(articles)))
	return OutcomeSent, nil
}
