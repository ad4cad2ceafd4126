package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/deskhive/deskhive/testing"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	cli, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	_, err = cli.Trigger(context.Background(), "mystery:job")
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerRequiresClient(t *testing.T) {
	var cli *JobsCLI
	_, err := cli.Trigger(context.Background(), "tickets:stale_scan")
	require.Error(t, err)
}

func TestSendTestMailRequiresRecipient(t *testing.T) {
	cli, err := NewJobsCLI("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close() })

	_, err = cli.SendTestMail(context.Background(), "")
	require.ErrorContains(t, err, "recipient required")
}
