package mailer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/LJTian/newsdigest/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestBuildMessage(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{Server: "smtp.example.com", Port: 465, User: "bot@example.com", Password: "x"})

	msg, err := s.buildMessage("[2025년 07월 18일] AITimes 신규 기사 알림", "<h1>hi</h1>", "me@example.com")
	require.NoError(t, err)
	// 非 ASCII 主题会被 MIME 编码
	assert.Len(t, msg.GetGenHeader(mail.HeaderSubject), 1)
	to := msg.GetToString()
	require.Len(t, to, 1)
	assert.Contains(t, to[0], "me@example.com")
}

func TestBuildMessageInvalidRecipient(t *testing.T) {
	s := NewSMTPSender(config.MailConfig{User: "bot@example.com"})
	_, err := s.buildMessage("s", "b", "not an address")
	assert.Error(t, err)
}

func TestSendConnectionRefused(t *testing.T) {
	// 占用一个端口后立即关闭，保证没有监听者
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := NewSMTPSender(config.MailConfig{
		Server:   "127.0.0.1",
		Port:     port,
		User:     "bot@example.com",
		Password: "secret",
	}).WithTimeout(2 * time.Second)

	err = s.Send(context.Background(), "subject", "<p>body</p>", "me@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp 127.0.0.1")
}
