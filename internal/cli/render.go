package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"co2dash/internal/render"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type renderOptions struct {
	selectionFlags
	out string
}

func NewRenderCommand(root *RootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render every dashboard chart as PNG files",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, data, err := snapshot(cmd.Context(), root, &opts.selectionFlags)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(opts.out, 0o755); err != nil {
				return WrapExitError(ExitCommandError, "create output directory", err)
			}

			var g errgroup.Group
			files := make([]string, len(render.Charts))
			for i, name := range render.Charts {
				name := name
				path := filepath.Join(opts.out, name+".png")
				files[i] = path
				g.Go(func() error {
					f, err := os.Create(path)
					if err != nil {
						return err
					}
					if err := render.Dashboard(f, name, data); err != nil {
						f.Close()
						return fmt.Errorf("%s: %w", name, err)
					}
					log.Debugf("wrote %s", path)
					return f.Close()
				})
			}
			if err := g.Wait(); err != nil {
				return WrapExitError(ExitFailure, "render", err)
			}

			out := &OutputFormatter{Format: root.Format, Writer: cmd.OutOrStdout()}
			return out.Success(files, func(w io.Writer) error {
				for _, f := range files {
					fmt.Fprintln(w, f)
				}
				return nil
			})
		},
	}

	opts.selectionFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "charts", "output directory")
	return cmd
}
