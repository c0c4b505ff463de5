package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/go-replicate/filter"
	"github.com/s0up4200/go-replicate/replicate"
)

var (
	uploadMetadata []string
	uploadName     string
	fileFilter     string
	fileLimit      int
	noConfirm      bool
)

// filesCmd groups file subcommands
var filesCmd = &cobra.Command{
	Use:     "files",
	Aliases: []string{"file", "f"},
	Short:   "Upload and manage files",
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>...",
	Short: "Upload files (- reads stdin)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilesUpload,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	Long: `List uploaded files, following every page.

--filter takes an expression or @name of a filter from the config file:

  replicate files list --filter 'isType("image/") and Size > 1e6'
  replicate files list --filter 'expired() or CreatedAt < daysAgo(30)'`,
	Args: cobra.NoArgs,
	RunE: runFilesList,
}

var filesGetCmd = &cobra.Command{
	Use:   "get <id>...",
	Short: "Show files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFilesGet,
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete [id]...",
	Short: "Delete files by ID or by --filter",
	RunE:  runFilesDelete,
}

func init() {
	filesUploadCmd.Flags().StringArrayVarP(&uploadMetadata, "metadata", "m", nil, "metadata as key=value (repeatable)")
	filesUploadCmd.Flags().StringVar(&uploadName, "name", "", "filename used when reading stdin")

	filesListCmd.Flags().StringVar(&fileFilter, "filter", "", "filter expression or @name")
	filesListCmd.Flags().IntVarP(&fileLimit, "limit", "n", 0, "stop after this many matches (0 for all)")

	filesDeleteCmd.Flags().StringVar(&fileFilter, "filter", "", "delete every file matching this filter")
	filesDeleteCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "skip confirmation prompt")

	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesGetCmd)
	filesCmd.AddCommand(filesDeleteCmd)
}

func runFilesUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	metadata, err := parseInputs(uploadMetadata)
	if err != nil {
		return err
	}

	for _, arg := range args {
		var file *replicate.File
		if arg == "-" {
			data, rerr := io.ReadAll(os.Stdin)
			if rerr != nil {
				return fmt.Errorf("failed to read stdin: %w", rerr)
			}
			file, err = client.Files().CreateFromBytes(ctx, data, uploadName, "", metadata)
		} else {
			file, err = client.Files().CreateFromPath(ctx, arg, metadata)
		}
		if err != nil {
			return err
		}

		logger.Info().Str("id", file.ID).Str("name", file.Name).Msg("Uploaded")
		if err := printFile(file); err != nil {
			return err
		}
	}
	return nil
}

func runFilesList(cmd *cobra.Command, args []string) error {
	f, err := resolveFilter(fileFilter)
	if err != nil {
		return err
	}

	var matched []replicate.File
	for file, err := range filteredFiles(cmd.Context(), f) {
		if err != nil {
			return err
		}
		matched = append(matched, file)
		if !jsonOut {
			printFileLine(file)
		}
		if fileLimit > 0 && len(matched) >= fileLimit {
			break
		}
	}

	if jsonOut {
		return printJSON(matched)
	}

	var total int64
	for _, file := range matched {
		total += file.Size
	}
	fmt.Printf("\n%s, %s\n", plural(len(matched), "file"), formatSize(total))
	return nil
}

func runFilesGet(cmd *cobra.Command, args []string) error {
	for _, id := range args {
		file, err := client.Files().Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if err := printFile(file); err != nil {
			return err
		}
	}
	return nil
}

func runFilesDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids := args
	if fileFilter != "" {
		if len(args) > 0 {
			return fmt.Errorf("pass either file IDs or --filter, not both")
		}
		f, err := resolveFilter(fileFilter)
		if err != nil {
			return err
		}
		for file, err := range filteredFiles(ctx, f) {
			if err != nil {
				return err
			}
			printFileLine(file)
			ids = append(ids, file.ID)
		}
	}

	if len(ids) == 0 {
		fmt.Println("No files to delete.")
		return nil
	}

	if !noConfirm && !confirm(fmt.Sprintf("Delete %s?", plural(len(ids), "file"))) {
		logger.Info().Msg("Deletion cancelled")
		return nil
	}

	deleted, err := deleteFiles(ctx, client.Files(), ids, cfg.Files.UploadConcurrency)
	fmt.Printf("Deleted %s.\n", plural(deleted, "file"))
	return err
}

func filteredFiles(ctx context.Context, f *filter.Filter) iter.Seq2[replicate.File, error] {
	seq := client.Files().All(ctx)
	if f != nil {
		seq = filter.Files(seq, f)
	}
	return seq
}

// deleteFiles removes ids with at most limit requests in flight. Every ID is
// attempted; failures are joined.
func deleteFiles(ctx context.Context, files replicate.FilesAPI, ids []string, limit int) (int, error) {
	var (
		mu      sync.Mutex
		deleted int
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	for _, id := range ids {
		g.Go(func() error {
			ok, err := files.Delete(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
				logger.Error().Err(err).Str("id", id).Msg("Failed to delete file")
			case !ok:
				errs = append(errs, fmt.Errorf("delete %s: not deleted", id))
			default:
				deleted++
				logger.Debug().Str("id", id).Msg("Deleted file")
			}
			return nil
		})
	}

	_ = g.Wait()
	return deleted, errors.Join(errs...)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}
