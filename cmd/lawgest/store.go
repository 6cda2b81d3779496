package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/lawgest/internal/law"
	"github.com/dgallion1/lawgest/internal/pathstore"
	"github.com/dgallion1/lawgest/internal/publish"
)

type storeFlags struct {
	url    string
	apiKey string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "pathstore-url", "", "pathstore URL (default: $PATHSTORE_URL)")
	cmd.Flags().StringVar(&f.apiKey, "pathstore-key", "", "pathstore API key (default: $PATHSTORE_API_KEY)")
}

func (a *app) publisher(f storeFlags) (*publish.Publisher, func(), error) {
	url, key := a.cfg.PathstoreURL, a.cfg.PathstoreAPIKey
	if f.url != "" {
		url = f.url
	}
	if f.apiKey != "" {
		key = f.apiKey
	}
	if key == "" {
		return nil, nil, fmt.Errorf("a pathstore API key is required (--pathstore-key or PATHSTORE_API_KEY)")
	}
	ps := pathstore.NewClient(url, key)
	return publish.New(ps, a.cfg.PublishConfig(), a.log), ps.Close, nil
}

func publishCmd(a *app) *cobra.Command {
	var (
		sf    storeFlags
		force bool
	)
	cmd := &cobra.Command{
		Use:   "publish <json>...",
		Short: "Publish converted JSON files to pathstore",
		Long: `Publish every law in the given JSON files. A law whose stored hash
(title, item count, date and schema version) is unchanged is skipped unless
--force is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, closeFn, err := a.publisher(sf)
			if err != nil {
				return err
			}
			defer closeFn()

			var docs []*law.Document
			for _, path := range args {
				d, err := readDocuments(path)
				if err != nil {
					return err
				}
				docs = append(docs, d...)
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			published, skipped, failed := 0, 0, 0
			for _, doc := range docs {
				res, err := pub.Publish(ctx, doc, force)
				switch {
				case err != nil:
					failed++
					failColor.Fprintf(out, "  ✗ %s: %v\n", doc.Category, err)
				case res.Skipped:
					skipped++
					fmt.Fprintf(out, "  - %s: unchanged\n", doc.Category)
				default:
					published++
					okColor.Fprintf(out, "  ✓ %s: %d items\n", doc.Category, res.Items)
				}
			}
			if published > 0 {
				sys, err := pub.Touch(ctx, published)
				if err != nil {
					return fmt.Errorf("update system metadata: %w", err)
				}
				a.log.Info("system metadata updated", "laws", sys.LawsCount)
			}
			headColor.Fprintf(out, "published %d, unchanged %d, failed %d\n", published, skipped, failed)
			if failed > 0 {
				return errFailed
			}
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "publish even when the stored hash matches")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	var sf storeFlags
	cmd := &cobra.Command{
		Use:   "delete <category>...",
		Short: "Delete published laws and their items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, c := range args {
				if !law.IsCategory(c) {
					return fmt.Errorf("invalid category %q", c)
				}
			}
			pub, closeFn, err := a.publisher(sf)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			for _, c := range args {
				meta, err := pub.Meta(ctx, c)
				if err != nil {
					return err
				}
				if meta == nil {
					fmt.Fprintf(out, "  - %s: not published\n", c)
					continue
				}
				if err := pub.Delete(ctx, c); err != nil {
					return err
				}
				okColor.Fprintf(out, "  ✓ %s: deleted %d items\n", c, meta.ItemCount)
			}
			if _, err := pub.Touch(ctx, 0); err != nil {
				return fmt.Errorf("update system metadata: %w", err)
			}
			return nil
		},
	}
	sf.register(cmd)
	return cmd
}
