// Command magicid identifies the MIME type of one or more files against a
// set of magic(5)-style rule files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/magikind/gofile"
)

var (
	magicFiles  []string
	mimeOnly    bool
	defaultMIME string
	debug       bool
	list        bool
)

var rootCmd = &cobra.Command{
	Use:   "magicid [file...]",
	Short: "Identify file types from magic(5)-style rules",
	Long:  "magicid compiles one or more magic rule files and reports the most specific MIME type matching each argument.",
	Args:  requireFilesUnlessListing,
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringSliceVarP(&magicFiles, "magic", "m", nil, "magic rule file to compile (repeatable)")
	rootCmd.Flags().BoolVarP(&mimeOnly, "mime", "i", true, "output MIME type strings")
	rootCmd.Flags().StringVar(&defaultMIME, "default-mime", "", "MIME type to report when no rule matches")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "log compile diagnostics to stderr")
	rootCmd.Flags().BoolVarP(&list, "list", "l", false, "list magic patterns and exit, instead of identifying files")
	rootCmd.MarkFlagRequired("magic")
}

// requireFilesUnlessListing mirrors the teacher's -l behavior: listing
// mode takes no file arguments, identification mode takes at least one.
func requireFilesUnlessListing(cmd *cobra.Command, args []string) error {
	if list {
		return cobra.NoArgs(cmd, args)
	}
	return cobra.MinimumNArgs(1)(cmd, args)
}

func run(cmd *cobra.Command, args []string) error {
	f, err := gofile.New(gofile.Options{
		MagicFiles:         magicFiles,
		DefaultUnknownMIME: defaultMIME,
		Debug:              debug,
	})
	if err != nil {
		return err
	}

	if list {
		for _, line := range f.ListMagic() {
			fmt.Println(line)
		}
		return nil
	}

	exitCode := 0
	for _, path := range args {
		mime, err := f.IdentifyFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "magicid: %s: %v\n", path, err)
			exitCode = 1
			continue
		}
		fmt.Printf("%s: %s\n", path, mime)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
