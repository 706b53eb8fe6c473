package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/scriptura/internal/model"
)

var (
	resolveEdition string
	resolveJSON    bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve WORK CHAPTER",
	Short: "Resolve one chapter and print it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		chapterNumber, err := strconv.Atoi(args[1])
		if err != nil {
			return eris.Errorf("chapter must be an integer, got %q", args[1])
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		chapter, err := env.Resolver.Resolve(cmd.Context(), args[0], chapterNumber, resolveEdition)
		if err != nil {
			fmt.Fprintln(os.Stderr, env.Resolver.UnavailableReason(resolveEdition))
			return err
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(chapter), "encode chapter")
		}

		printChapter(chapter)
		return nil
	},
}

func printChapter(ch *model.Chapter) {
	fmt.Printf("%s %d (%s)\n\n", ch.WorkName, ch.ChapterNumber, ch.EditionCode)
	var b strings.Builder
	for i, v := range ch.Verses {
		if v.ParagraphStart && i > 0 {
			b.WriteString("\n\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "[%d] %s", v.Number, v.Text)
	}
	fmt.Println(b.String())
	if ch.Attribution != nil {
		fmt.Printf("\n%s\n", *ch.Attribution)
	}
}

func init() {
	resolveCmd.Flags().StringVar(&resolveEdition, "edition", "WEB", "edition code")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "print the chapter as JSON")
	rootCmd.AddCommand(resolveCmd)
}
