package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/grovetools/pantry/cli"
	"github.com/grovetools/pantry/logging"
	"github.com/grovetools/pantry/pkg/paths"
)

// LogLine is one line read from a component's log file.
type LogLine struct {
	Component string `json:"component"`
	Line      string `json:"line"`
}

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs [component...]",
		Short: "Show the daemon and CLI log files",
		Long: `Prints today's log files from the state directory, one per component
(pantryd, agent, session, storage, auth, server, pantry-cli). With no
component every log file of the day is shown.

Examples:
  # follow the agent and session logs
  pantry logs -f agent session

  # last 50 lines of every component
  pantry logs --tail 50`,
		RunE: runLogsE,
	}
	cmd.Flags().BoolP("follow", "f", false, "Follow log output")
	cmd.Flags().Int("tail", -1, "Number of lines to show from the end of each file (default: all)")
	return cmd
}

func runLogsE(cmd *cobra.Command, args []string) error {
	logger := cli.GetLogger(cmd)
	opts := cli.GetOptions(cmd)
	follow, _ := cmd.Flags().GetBool("follow")
	tailLines, _ := cmd.Flags().GetInt("tail")

	var logCfg logging.Config
	if cfg, err := cli.LoadConfig(cmd); err == nil {
		_ = cfg.UnmarshalExtension("logging", &logCfg)
	}

	files, err := logFiles(logCfg, args, time.Now())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info("No log files found")
		return nil
	}

	lines := make(chan LogLine, 100)
	tails := make([]*tail.Tail, 0, len(files))
	var wg sync.WaitGroup
	for component, path := range files {
		logger.WithFields(logrus.Fields{"component": component, "file": path}).Debug("Tailing log file")
		t, err := tail.TailFile(path, tail.Config{
			Follow:    follow,
			ReOpen:    follow,
			MustExist: !follow,
			Location:  startOf(follow),
			Logger:    stdlog.New(io.Discard, "", 0),
		})
		if err != nil {
			logger.WithField("file", path).Debugf("Skipping: %v", err)
			continue
		}
		tails = append(tails, t)

		wg.Add(1)
		go func(component string, t *tail.Tail) {
			defer wg.Done()
			forward(component, t, lines, tailLines, follow)
		}(component, t)
	}

	go func() {
		<-cmd.Context().Done()
		for _, t := range tails {
			_ = t.Stop()
		}
	}()
	go func() {
		wg.Wait()
		close(lines)
	}()

	out := cmd.OutOrStdout()
	for line := range lines {
		if opts.JSONOutput {
			data, _ := json.Marshal(line)
			fmt.Fprintln(out, string(data))
			continue
		}
		fmt.Fprintf(out, "%s %s\n", componentStyle.Render(fmt.Sprintf("[%s]", line.Component)), line.Line)
	}
	return nil
}

var componentStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"})

func startOf(follow bool) *tail.SeekInfo {
	if follow {
		return &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	return &tail.SeekInfo{Offset: 0, Whence: io.SeekStart}
}

// forward sends t's lines to out. Without follow only the last keep lines
// are sent (all when keep is negative).
func forward(component string, t *tail.Tail, out chan<- LogLine, keep int, follow bool) {
	if follow {
		for line := range t.Lines {
			out <- LogLine{Component: component, Line: line.Text}
		}
		return
	}

	var buf []string
	for line := range t.Lines {
		buf = append(buf, line.Text)
		if keep >= 0 && len(buf) > keep {
			buf = buf[1:]
		}
	}
	for _, text := range buf {
		out <- LogLine{Component: component, Line: text}
	}
}

// logFiles maps component names to the log files to read on day.
func logFiles(logCfg logging.Config, components []string, day time.Time) (map[string]string, error) {
	if logCfg.File.Path != "" {
		return map[string]string{"pantry": logCfg.File.Path}, nil
	}

	files := make(map[string]string)
	if len(components) > 0 {
		for _, c := range components {
			files[c] = logging.LogFilePath(c, day)
		}
		return files, nil
	}

	suffix := "-" + day.Format("2006-01-02") + ".log"
	matches, err := filepath.Glob(filepath.Join(paths.LogDir(), "*"+suffix))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			files[strings.TrimSuffix(filepath.Base(m), suffix)] = m
		}
	}
	return files, nil
}
