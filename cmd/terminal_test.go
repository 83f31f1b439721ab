package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/killallgit/audio-recap/internal/services/summarization"
	"github.com/killallgit/audio-recap/internal/services/transcription"
	"github.com/killallgit/audio-recap/pkg/download"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopTranscoder struct{}

func (noopTranscoder) Transcode(_ context.Context, asset audio.Asset, _ audio.CompressionPlan) (audio.Asset, error) {
	return asset, nil
}

type echoTranscriber struct{}

func (echoTranscriber) Transcribe(_ context.Context, segments []audio.Asset, onProgress transcription.ProgressFunc) (*transcription.Transcript, error) {
	out := &transcription.Transcript{Language: "ja"}
	for i, seg := range segments {
		out.Segments = append(out.Segments, transcription.Segment{Index: i, Text: string(seg.Data)})
		onProgress(i+1, len(segments))
	}
	return out, nil
}

// echoSummarizer answers with the turn query and keeps a fixed conversation
// id. Queries equal to fail are rejected.
type echoSummarizer struct {
	fail string
}

func (e echoSummarizer) Submit(_ context.Context, conv summarization.Conversation, turn summarization.Turn, onFragment summarization.FragmentFunc) (summarization.Conversation, *summarization.Answer, error) {
	if turn.Query == e.fail {
		return conv, nil, &summarization.SessionError{Kind: summarization.KindRemoteRejected, Detail: "rejected"}
	}
	text := "re: " + turn.Query
	onFragment(text)

	display := turn.Display
	if display == "" {
		display = turn.Query
	}
	conv.ID = "conv-1"
	conv.Messages = append(conv.Messages,
		summarization.Message{Role: summarization.RoleUser, Content: display},
		summarization.Message{Role: summarization.RoleAssistant, Content: text},
	)
	return conv, &summarization.Answer{Text: text, ConversationID: conv.ID, Streamed: true}, nil
}

type staticFetcher struct {
	data []byte
	err  error
}

func (f staticFetcher) Fetch(_ context.Context, rawURL string) (*download.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &download.Result{Name: filepath.Base(rawURL), Data: f.data}, nil
}

func newTestTerminal(t *testing.T, summarizer echoSummarizer, fetcher download.Fetcher) (*terminal, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	session := orchestrator.NewSession("term", orchestrator.Config{}, noopTranscoder{}, echoTranscriber{}, summarizer, orchestrator.WithLogger(logger))

	out, status := new(bytes.Buffer), new(bytes.Buffer)
	return &terminal{session: session, fetcher: fetcher, out: out, status: status}, out, status
}

func writeAudio(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTerminalUploadAndFollowUp(t *testing.T) {
	term, out, status := newTestTerminal(t, echoSummarizer{}, nil)
	path := writeAudio(t, "standup.mp3", "hello team")

	require.NoError(t, term.upload(context.Background(), path, "Summarize"))
	assert.Contains(t, out.String(), "re: hello team")
	assert.Contains(t, status.String(), "Processing standup.mp3")
	assert.Contains(t, status.String(), "Transcribing 1/1...")
	assert.Contains(t, status.String(), "Summarizing...")
	assert.Equal(t, "conv-1", term.session.ConversationID())

	out.Reset()
	in := strings.NewReader("who spoke?\n\n/quit\nnever read\n")
	require.NoError(t, term.loop(context.Background(), in))
	assert.Equal(t, "re: who spoke?\n", out.String())
	assert.Len(t, term.session.Messages(), 4)
}

func TestTerminalLoopCommands(t *testing.T) {
	term, out, status := newTestTerminal(t, echoSummarizer{fail: "bad question"}, nil)
	path := writeAudio(t, "call.wav", "quarterly numbers")

	script := strings.Join([]string{
		"before upload",
		"/upload " + path,
		"bad question",
		"after failure",
		"/reset",
		"after reset",
		"/upload " + filepath.Join(t.TempDir(), "missing.mp3"),
	}, "\n")
	require.NoError(t, term.loop(context.Background(), strings.NewReader(script)))

	log := status.String()
	assert.Equal(t, 2, strings.Count(log, "No active conversation. Use /upload <file|url> first."))
	assert.Contains(t, log, "Error during summarize: summarization remote_rejected error: rejected")
	assert.Contains(t, log, "Conversation reset.")
	assert.Contains(t, log, "Error: open ")
	assert.Contains(t, out.String(), "re: quarterly numbers")
	assert.Contains(t, out.String(), "re: after failure")
	assert.Equal(t, summarization.StateIdle, term.session.State())
}

func TestTerminalBareUploadPrintsUsage(t *testing.T) {
	term, out, status := newTestTerminal(t, echoSummarizer{}, nil)
	path := writeAudio(t, "memo.m4a", "memo")
	require.NoError(t, term.upload(context.Background(), path, ""))
	out.Reset()

	require.NoError(t, term.loop(context.Background(), strings.NewReader("/upload\n/upload   \n")))
	assert.Equal(t, 2, strings.Count(status.String(), "Usage: /upload <file|url>"))
	assert.Empty(t, out.String(), "nothing is sent to the conversation")
	assert.Len(t, term.session.Messages(), 2)
}

func TestTerminalUploadValidation(t *testing.T) {
	term, _, status := newTestTerminal(t, echoSummarizer{}, nil)
	path := writeAudio(t, "notes.txt", "plain text")

	err := term.upload(context.Background(), path, "")
	require.Error(t, err)
	assert.Equal(t, orchestrator.StageValidate, orchestrator.StageOf(err))

	var unsupported *orchestrator.UnsupportedFormatError
	assert.True(t, errors.As(err, &unsupported))

	term.report(err)
	assert.Contains(t, status.String(), "Error during validate:")
}

func TestTerminalLoadUpload(t *testing.T) {
	tests := []struct {
		name       string
		fetcher    download.Fetcher
		target     string
		wantErr    string
		wantName   string
		wantSource models.JobSource
	}{
		{
			name:       "remote file",
			fetcher:    staticFetcher{data: []byte("remote")},
			target:     "https://example.com/ep/42.mp3",
			wantName:   "42.mp3",
			wantSource: models.JobSourceURL,
		},
		{
			name:    "remote without fetcher",
			target:  "http://example.com/a.mp3",
			wantErr: "remote fetch is not available",
		},
		{
			name:    "fetch failure",
			fetcher: staticFetcher{err: download.ErrNotAudio},
			target:  "https://example.com/page.html",
			wantErr: download.ErrNotAudio.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, _, _ := newTestTerminal(t, echoSummarizer{}, tt.fetcher)
			up, err := term.loadUpload(context.Background(), tt.target, "inst")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, up.Asset.Name)
			assert.Equal(t, tt.wantSource, up.Source)
			assert.Equal(t, "inst", up.Instruction)
		})
	}
}
