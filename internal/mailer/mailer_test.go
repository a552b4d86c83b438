package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framesnap/framesnap/internal/ledger"
	"github.com/framesnap/framesnap/internal/notify"
)

type fakeDirectory struct {
	emails map[string]string
	err    error
}

func (f *fakeDirectory) EmailFor(_ context.Context, ownerID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	email, ok := f.emails[ownerID]
	if !ok {
		return "", fmt.Errorf("user %s: %w", ownerID, ErrNoEmail)
	}
	return email, nil
}

type sentEmail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to: to, subject: subject, body: htmlBody})
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestDispatcher() (*Dispatcher, *fakeDirectory, *fakeSender) {
	dir := &fakeDirectory{emails: map[string]string{"u1": "u1@example.com"}}
	sender := &fakeSender{}
	return NewDispatcher(dir, sender, testLogger()), dir, sender
}

func TestDispatch(t *testing.T) {
	t.Run("completed outcome", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		err := d.Dispatch(context.Background(), notify.Message{
			OwnerID:        "u1",
			VideoID:        "v1",
			Status:         ledger.StatusCompleted,
			OutputLocation: "s3://out/outputs/u1/v1/frames.zip",
		})
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "u1@example.com", sender.sent[0].to)
		assert.Equal(t, "Video Processing Completed", sender.sent[0].subject)
		assert.Contains(t, sender.sent[0].body, "s3://out/outputs/u1/v1/frames.zip")
	})

	t.Run("error outcome", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		err := d.Dispatch(context.Background(), notify.Message{
			OwnerID:     "u1",
			VideoID:     "v1",
			Status:      ledger.StatusError,
			ErrorDetail: "moov atom not found",
		})
		require.NoError(t, err)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "Video Processing Failed", sender.sent[0].subject)
		assert.Contains(t, sender.sent[0].body, "moov atom not found")
	})

	t.Run("unknown owner", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		err := d.Dispatch(context.Background(), notify.Message{OwnerID: "nobody", VideoID: "v1"})
		require.ErrorIs(t, err, ErrNoEmail)
		assert.Empty(t, sender.sent)
	})

	t.Run("send failure", func(t *testing.T) {
		d, _, sender := newTestDispatcher()
		sender.err = errors.New("throttled")

		err := d.Dispatch(context.Background(), notify.Message{OwnerID: "u1", VideoID: "v1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "throttled")
	})
}

func TestHandleQueueMessage(t *testing.T) {
	const inner = `{"owner_id":"u1","video_id":"v1","status":"COMPLETED","output_location":"s3://out/o.zip"}`

	t.Run("SNS envelope", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		body := fmt.Sprintf(`{"Type":"Notification","Message":%q}`, inner)
		require.NoError(t, d.HandleQueueMessage(context.Background(), []byte(body)))
		require.Len(t, sender.sent, 1)
		assert.Contains(t, sender.sent[0].body, "s3://out/o.zip")
	})

	t.Run("raw JSON body", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		require.NoError(t, d.HandleQueueMessage(context.Background(), []byte(inner)))
		assert.Len(t, sender.sent, 1)
	})

	t.Run("undecodable body is acknowledged", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		require.NoError(t, d.HandleQueueMessage(context.Background(), []byte("garbage")))
		assert.Empty(t, sender.sent)
	})

	t.Run("missing identity is acknowledged", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		require.NoError(t, d.HandleQueueMessage(context.Background(), []byte(`{"status":"COMPLETED"}`)))
		assert.Empty(t, sender.sent)
	})

	t.Run("unresolvable address is acknowledged", func(t *testing.T) {
		d, _, sender := newTestDispatcher()

		body := `{"owner_id":"nobody","video_id":"v1","status":"COMPLETED"}`
		require.NoError(t, d.HandleQueueMessage(context.Background(), []byte(body)))
		assert.Empty(t, sender.sent)
	})

	t.Run("dispatch failure requests redelivery", func(t *testing.T) {
		d, _, sender := newTestDispatcher()
		sender.err = errors.New("throttled")

		require.Error(t, d.HandleQueueMessage(context.Background(), []byte(inner)))
	})
}

type fakeCognito struct {
	attrs map[string][]cognitotypes.AttributeType
	err   error

	lastInput *cognitoidentityprovider.AdminGetUserInput
}

func (f *fakeCognito) AdminGetUser(_ context.Context, in *cognitoidentityprovider.AdminGetUserInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error) {
	f.lastInput = in
	if f.err != nil {
		return nil, f.err
	}
	attrs, ok := f.attrs[aws.ToString(in.Username)]
	if !ok {
		return nil, errors.New("UserNotFoundException")
	}
	return &cognitoidentityprovider.AdminGetUserOutput{
		Username:       in.Username,
		UserAttributes: attrs,
	}, nil
}

func TestCognitoDirectory_EmailFor(t *testing.T) {
	t.Run("resolves email attribute", func(t *testing.T) {
		fake := &fakeCognito{attrs: map[string][]cognitotypes.AttributeType{
			"u1": {
				{Name: aws.String("sub"), Value: aws.String("abc-123")},
				{Name: aws.String("email"), Value: aws.String("u1@example.com")},
			},
		}}
		dir := NewCognitoDirectory(fake, "pool-1")

		email, err := dir.EmailFor(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1@example.com", email)
		assert.Equal(t, "pool-1", aws.ToString(fake.lastInput.UserPoolId))
	})

	t.Run("user without email attribute", func(t *testing.T) {
		fake := &fakeCognito{attrs: map[string][]cognitotypes.AttributeType{
			"u1": {{Name: aws.String("sub"), Value: aws.String("abc-123")}},
		}}
		dir := NewCognitoDirectory(fake, "pool-1")

		_, err := dir.EmailFor(context.Background(), "u1")
		require.ErrorIs(t, err, ErrNoEmail)
	})

	t.Run("unknown user", func(t *testing.T) {
		fake := &fakeCognito{}
		dir := NewCognitoDirectory(fake, "pool-1")

		_, err := dir.EmailFor(context.Background(), "nobody")
		require.Error(t, err)
	})
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_SendEmail(t *testing.T) {
	fake := &fakeSES{}
	s := NewSESSender(fake, "noreply@framesnap.io")

	err := s.SendEmail(context.Background(), "u1@example.com", "Subject", "<h2>Body</h2>")
	require.NoError(t, err)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "noreply@framesnap.io", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"u1@example.com"}, in.Destination.ToAddresses)
	assert.Equal(t, "Subject", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "<h2>Body</h2>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_SendEmailFailure(t *testing.T) {
	fake := &fakeSES{err: errors.New("MessageRejected")}
	s := NewSESSender(fake, "noreply@framesnap.io")

	err := s.SendEmail(context.Background(), "u1@example.com", "Subject", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MessageRejected")
}
