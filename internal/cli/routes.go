package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"certprep-study-service/internal/config"
	"certprep-study-service/internal/content"
	"certprep-study-service/internal/logger"

	"github.com/spf13/cobra"
)

// NewRoutesCmd prints every page path with the title and description a static renderer would emit.
func NewRoutesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the static route catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			store, cleanup, err := contentOnly(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			return printRoutes(cmd.OutOrStdout(), store)
		},
	}
}

func printRoutes(out io.Writer, store *content.Store) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tTITLE\tDESCRIPTION")
	for _, r := range store.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Path, content.FullTitle(r.Title), r.Description)
	}
	return w.Flush()
}

// contentOnly loads the configured content without opening wrong-answer storage.
func contentOnly(ctx context.Context, cfg config.Config) (*content.Store, func(), error) {
	cfg.Storage.Backend = "memory"
	cfg.Redis.Addr = ""
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := loadContent(ctx, cfg, b, logger.Get())
	if err != nil {
		b.Close()
		return nil, nil, err
	}
	return store, b.Close, nil
}
