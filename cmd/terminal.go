package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/killallgit/audio-recap/internal/audio"
	"github.com/killallgit/audio-recap/internal/models"
	"github.com/killallgit/audio-recap/internal/services/orchestrator"
	"github.com/killallgit/audio-recap/pkg/download"
)

// Terminal commands
const (
	cmdQuit   = "/quit"
	cmdReset  = "/reset"
	cmdUpload = "/upload"
)

// terminal is the interactive presentation over one session. Answers go to
// out as they stream; progress and prompts go to status.
type terminal struct {
	session *orchestrator.Session
	fetcher download.Fetcher
	out     io.Writer
	status  io.Writer
}

// loadUpload reads a local file or fetches a URL.
func (t *terminal) loadUpload(ctx context.Context, target, instruction string) (orchestrator.Upload, error) {
	up := orchestrator.Upload{Instruction: instruction}

	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		if t.fetcher == nil {
			return up, errors.New("remote fetch is not available")
		}
		fmt.Fprintf(t.status, "Downloading %s\n", target)
		res, err := t.fetcher.Fetch(ctx, target)
		if err != nil {
			return up, err
		}
		up.Asset = audio.NewAsset(res.Name, res.Data)
		up.Source = models.JobSourceURL
		return up, nil
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return up, err
	}
	up.Asset = audio.NewAsset(filepath.Base(target), data)
	up.Source = models.JobSourceFile
	return up, nil
}

// progress prints stage changes and streams answer fragments.
func (t *terminal) progress(p orchestrator.Progress) {
	switch {
	case p.Fragment != "":
		fmt.Fprint(t.out, p.Fragment)
	case p.Stage == orchestrator.StageTranscode:
		fmt.Fprintf(t.status, "Compressing audio (%s quality)...\n", p.Tier)
	case p.Stage == orchestrator.StageTranscribe && p.SegmentTotal > 0:
		fmt.Fprintf(t.status, "Transcribing %d/%d...\n", p.SegmentIndex, p.SegmentTotal)
	case p.Stage == orchestrator.StageSummarize:
		fmt.Fprintln(t.status, "Summarizing...")
	}
}

// upload runs one NewUpload and prints the outcome.
func (t *terminal) upload(ctx context.Context, target, instruction string) error {
	up, err := t.loadUpload(ctx, target, instruction)
	if err != nil {
		return err
	}

	fmt.Fprintf(t.status, "Processing %s (%.1f MiB)\n", up.Asset.Name, float64(up.Asset.Size())/(1<<20))
	if _, err := t.session.NewUpload(ctx, up, t.progress); err != nil {
		return err
	}
	fmt.Fprintln(t.out)
	return nil
}

// ask runs one FollowUp.
func (t *terminal) ask(ctx context.Context, question string) error {
	if _, err := t.session.FollowUp(ctx, question, t.progress); err != nil {
		return err
	}
	fmt.Fprintln(t.out)
	return nil
}

// loop reads questions and commands from in until EOF or /quit. Failures
// are reported and the loop continues with the conversation intact.
func (t *terminal) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(t.status, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(t.status)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		var err error
		switch {
		case line == "":
			continue
		case line == cmdQuit:
			return nil
		case line == cmdReset:
			if err = t.session.Reset(); err == nil {
				fmt.Fprintln(t.status, "Conversation reset. Use /upload <file|url> to start again.")
			}
		case line == cmdUpload:
			fmt.Fprintln(t.status, "Usage: /upload <file|url>")
		case strings.HasPrefix(line, cmdUpload+" "):
			err = t.upload(ctx, strings.TrimSpace(strings.TrimPrefix(line, cmdUpload)), "")
		default:
			err = t.ask(ctx, line)
		}

		if err != nil {
			t.report(err)
		}
	}
}

func (t *terminal) report(err error) {
	if errors.Is(err, orchestrator.ErrNoActiveConversation) {
		fmt.Fprintln(t.status, "No active conversation. Use /upload <file|url> first.")
		return
	}
	if stage := orchestrator.StageOf(err); stage != "" {
		fmt.Fprintf(t.status, "Error during %s: %v\n", stage, errors.Unwrap(err))
		return
	}
	fmt.Fprintf(t.status, "Error: %v\n", err)
}
