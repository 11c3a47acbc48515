package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kapu/subtitle-translator-go/internal/app"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/translation"
	"github.com/kapu/subtitle-translator-go/internal/subtitle"
)

const autoLanguage = "auto"

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var (
		from   string
		to     string
		output string
	)

	cmd := &cobra.Command{
		Use:   "translate <file.srt|->",
		Short: "Translate a local SRT file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			target := domain.NormalizeLanguage(to)
			if !domain.IsSupportedLanguage(target) {
				return fmt.Errorf("unsupported target language %q", to)
			}

			document, err := readDocument(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			seq, report, err := subtitle.Parse(document)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			if report.Dropped > 0 || report.Renumbered > 0 {
				logger.Warn("Subtitle document repaired",
					zap.Int("dropped", report.Dropped),
					zap.Int("renumbered", report.Renumbered),
				)
			}

			source := domain.NormalizeLanguage(from)
			if source == "" || source == autoLanguage {
				source = subtitle.DetectLanguage(seq)
				if source == "" {
					return fmt.Errorf("could not detect the source language; pass --from")
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Detected source language: %s\n", domain.LanguageName(source))
			}
			if source == target {
				return fmt.Errorf("source and target language are both %q", target)
			}

			backend, err := ctx.newBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			engine := app.NewEngine(cfg, backend, logger)

			progress := cmd.ErrOrStderr()
			out, result := engine.Translate(cmd.Context(), seq, source, target,
				translation.WithProgress(func(p translation.Progress) {
					status := "ok"
					if p.Degraded {
						status = "kept original"
					}
					fmt.Fprintf(progress, "Batch %d/%d: %s/%s cues (%s)\n",
						p.Batch, p.Batches, humanize.Comma(int64(p.CuesDone)), humanize.Comma(int64(p.Cues)), status)
				}))

			translated := subtitle.Serialize(out)
			if err := writeDocument(cmd.OutOrStdout(), output, translated); err != nil {
				return err
			}

			fmt.Fprintf(progress, "Translated %s cues %s → %s in %d batches (%d degraded, %d retries), %s\n",
				humanize.Comma(int64(len(out))),
				domain.LanguageName(source), domain.LanguageName(target),
				result.Batches, result.Degraded, result.Retries,
				humanize.Bytes(uint64(len(translated))),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", autoLanguage, "Source language code, or auto to detect")
	cmd.Flags().StringVar(&to, "to", "ro", "Target language code")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to this file instead of stdout")

	return cmd
}

func readDocument(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func writeDocument(stdout io.Writer, path, document string) error {
	if path == "" {
		_, err := io.WriteString(stdout, document)
		return err
	}
	if err := os.WriteFile(path, []byte(document), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
