package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kapu/subtitle-translator-go/internal/adapter"
	"github.com/kapu/subtitle-translator-go/internal/domain"
	"github.com/kapu/subtitle-translator-go/internal/service/opensubtitles"
	"github.com/kapu/subtitle-translator-go/internal/service/selector"
)

func newOffersCommand(ctx *commandContext) *cobra.Command {
	var (
		lang     string
		jsonMode bool
	)

	cmd := &cobra.Command{
		Use:   "offers <imdbId[:season:episode]>",
		Short: "Show which subtitles would be offered for a title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := ctx.ensure()
			if err != nil {
				return err
			}

			preferred := domain.NormalizeLanguage(lang)
			if !domain.IsSupportedLanguage(preferred) {
				return fmt.Errorf("unsupported language %q", lang)
			}
			mediaType := "movie"
			if media, parseErr := domain.ParseMediaID("series", args[0]); parseErr == nil && media.IsEpisode() {
				mediaType = "series"
			}
			media, err := adapter.ParseSubtitleRequest(mediaType, args[0])
			if err != nil {
				return err
			}

			source, err := ctx.newSource(cfg, logger)
			if err != nil {
				return err
			}
			candidates := source.Search(cmd.Context(), opensubtitles.SearchRequest{
				IMDBID:  media.IMDBID,
				Season:  media.Season,
				Episode: media.Episode,
			})
			sel := selector.New(cfg.Selector.Priority, cfg.Selector.MaxOffers).Select(candidates, preferred)

			offers := sel.Offers
			if sel.IsDirect() {
				offers = make([]domain.Offer, 0, len(sel.Direct))
				for _, c := range sel.Direct {
					offers = append(offers, domain.Offer{
						Kind:       domain.OfferDirect,
						SourceID:   c.SourceID,
						SourceLang: preferred,
						TargetLang: preferred,
						Candidate:  c,
					})
				}
			}

			if jsonMode {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(offers)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d candidates found\n", media, len(candidates))
			if len(offers) == 0 {
				fmt.Fprintln(out, "No subtitles to offer")
				return nil
			}

			rows := make([][]string, 0, len(offers))
			for _, o := range offers {
				rows = append(rows, []string{
					string(o.Kind),
					o.SourceLang + " → " + o.TargetLang,
					o.SourceID,
					o.Candidate.ReleaseLabel,
					humanize.Comma(int64(o.Candidate.Popularity)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Kind", "Languages", "File ID", "Release", "Downloads"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "ro", "Preferred subtitle language")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Print offers as JSON")

	return cmd
}
