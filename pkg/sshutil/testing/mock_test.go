package testing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_CustomResponse(t *testing.T) {
	client := NewMockClient("testhost")

	client.SetCommandResponse("custom-cmd", CommandResponse{
		Stdout:   []byte("custom output"),
		ExitCode: 42,
	})

	stdout, _, code, err := client.Exec(context.Background(), "custom-cmd")
	require.NoError(t, err)
	assert.Equal(t, 42, code)
	assert.Equal(t, "custom output", string(stdout))
}

func TestMockClient_RegexPattern(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse(`^df -P .* /var$`, CommandResponse{Stdout: []byte("disk")})

	stdout, _, code, err := client.Exec(context.Background(), "df -P -B1 /var")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "disk", string(stdout))
}

func TestMockClient_ExactBeatsRegex(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse(`free`, CommandResponse{Stdout: []byte("regex")})
	client.SetCommandResponse(`free -b`, CommandResponse{Stdout: []byte("exact")})

	stdout, _, _, err := client.Exec(context.Background(), "free -b")
	require.NoError(t, err)
	assert.Equal(t, "exact", string(stdout))
}

func TestMockClient_Sequence(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandSequence("top",
		CommandResponse{Stdout: []byte("one")},
		CommandResponse{Stdout: []byte("two")},
	)

	var got []string
	for i := 0; i < 3; i++ {
		out, _, _, err := client.Exec(context.Background(), "top")
		require.NoError(t, err)
		got = append(got, string(out))
	}
	assert.Equal(t, []string{"one", "two", "two"}, got)
}

func TestMockClient_ReplaceResponse(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse("x", CommandResponse{Stdout: []byte("old")})
	client.SetCommandResponse("x", CommandResponse{Stdout: []byte("new")})

	out, _, _, _ := client.Exec(context.Background(), "x")
	assert.Equal(t, "new", string(out))
}

func TestMockClient_CustomError(t *testing.T) {
	client := NewMockClient("testhost")
	boom := errors.New("session reset")
	client.SetCommandResponse("fail", CommandResponse{Error: boom})

	_, _, _, err := client.Exec(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)
}

func TestMockClient_UnknownCommand(t *testing.T) {
	client := NewMockClient("testhost")

	_, stderr, code, err := client.Exec(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
	assert.Contains(t, string(stderr), "command not found")
}

func TestMockClient_Uname(t *testing.T) {
	client := NewMockClient("testhost")

	out, _, _, err := client.Exec(context.Background(), "uname -s")
	require.NoError(t, err)
	assert.Equal(t, "Linux\n", string(out))

	client.SetOS("Darwin")
	out, _, _, _ = client.Exec(context.Background(), "uname -s")
	assert.Equal(t, "Darwin\n", string(out))
}

func TestMockClient_DelayHonorsContext(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse("slow", CommandResponse{Delay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, code, err := client.Exec(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, -1, code)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestMockClient_Close(t *testing.T) {
	client := NewMockClient("testhost")

	_, _, _, err := client.Exec(context.Background(), "uname -s")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.True(t, client.IsClosed())
	assert.Equal(t, 2, client.CloseCount())

	_, _, _, err = client.Exec(context.Background(), "uname -s")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestMockClient_CallsAndConcurrency(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse("a", CommandResponse{Delay: 10 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Exec(context.Background(), "a")
		}()
	}
	wg.Wait()

	assert.Len(t, client.Calls(), 3)
	assert.GreaterOrEqual(t, client.MaxConcurrent(), 1)
}

func TestMockClient_GetHostAndAddress(t *testing.T) {
	client := NewMockClient("myserver")

	assert.Equal(t, "myserver", client.GetHost())
	assert.Equal(t, "myserver:22", client.GetAddress())
}

func TestHelpers(t *testing.T) {
	client := NewMockClient("testhost")
	WithStdout(client, map[string]string{"free -b": "mem"})
	WithFailure(client, "df", 1, "df: /nope: No such file or directory")

	out, _, code, _ := client.Exec(context.Background(), "free -b")
	assert.Equal(t, "mem", string(out))
	assert.Equal(t, 0, code)

	_, stderr, code, _ := client.Exec(context.Background(), "df -P /nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, string(stderr), "No such file")
}
