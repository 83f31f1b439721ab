package cmd

import (
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/killallgit/audio-recap/pkg/config"
	"github.com/killallgit/audio-recap/pkg/logging"
	"github.com/spf13/cobra"
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize <file|url>",
	Short: "Summarize an audio file and ask follow-up questions",
	Long: `Summarize an audio file in the terminal.

The summary is printed as it streams. Afterwards each line typed is a
follow-up question in the same conversation:

  /upload <file|url>  summarize another recording in this conversation
  /reset              forget the conversation
  /quit               exit

Example:
  audio-recap summarize meeting.m4a
  audio-recap summarize https://example.com/episode.mp3 --instruction "List the action items"`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().StringP("instruction", "i", "", "instruction placed before the transcript")
	summarizeCmd.Flags().Bool("no-follow-up", false, "exit after the summary")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetConfig()
	if err != nil {
		return err
	}

	p, err := newPipeline(cfg, logging.Log)
	if err != nil {
		return err
	}
	defer p.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p.openJobs(ctx)

	term := &terminal{
		session: p.newSession(uuid.NewString()),
		fetcher: p.fetcher,
		out:     cmd.OutOrStdout(),
		status:  cmd.ErrOrStderr(),
	}

	instruction, _ := cmd.Flags().GetString("instruction")
	if err := term.upload(ctx, args[0], instruction); err != nil {
		return err
	}

	if noFollowUp, _ := cmd.Flags().GetBool("no-follow-up"); noFollowUp {
		return nil
	}
	return term.loop(ctx, cmd.InOrStdin())
}
