package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/pkg/sdk"
)

var (
	todoDescription string
	todoPriority    string
	todoDue         string
	todoTopic       string

	knowledgeBody  string
	knowledgeTopic string
	knowledgeTags  []string

	journalListJSON bool
)

var todoCmd = &cobra.Command{
	Use:   "todo <title>",
	Short: "Propose recording a todo (upsert by title)",
	Long: `Propose recording a todo.

If an open task already carries the same normalized title it is updated
in place instead of duplicated. New tasks land in the given topic, or in
the store's catch-all topic when none is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeRecordTodo(cmd.Context(), application.RecordTodoInput{
			Title:       strings.Join(args, " "),
			Description: todoDescription,
			Priority:    todoPriority,
			Due:         todoDue,
			TopicID:     todoTopic,
		}, services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Read and append daily journals",
}

var journalShowCmd = &cobra.Command{
	Use:   "show <date>",
	Short: "Show the journal for a date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		journal, err := services.Client.GetJournal(cmd.Context(), args[0])
		if err != nil {
			return MapError(err)
		}
		if journalListJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(journal)
		}
		fmt.Printf("Journal %s\n\n%s\n", journal.JournalDate, journal.Body)
		return nil
	},
}

var journalAppendCmd = &cobra.Command{
	Use:   "append <date> <text>",
	Short: "Propose appending text to a day's journal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeAppendJournal(cmd.Context(),
			args[0], args[1], "", services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Search and record knowledge notes",
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search knowledge notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		list, err := services.Client.SearchNotes(cmd.Context(), sdk.SearchNotesParams{
			Query:   strings.Join(args, " "),
			TopicID: knowledgeTopic,
		})
		if err != nil {
			return MapError(err)
		}
		fmt.Printf("Notes: %d (showing %d)\n", list.Total, len(list.Items))
		for _, n := range list.Items {
			fmt.Printf("  %s  %s\n", n.ID, n.Title)
		}
		return nil
	},
}

var knowledgeRecordCmd = &cobra.Command{
	Use:   "record <title>",
	Short: "Propose recording a knowledge note (upsert by title)",
	Long: `Propose recording a knowledge note.

An active note with the same normalized title gets the body appended;
otherwise a new note is created.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeUpsertKnowledge(cmd.Context(), application.UpsertKnowledgeInput{
			Title:   strings.Join(args, " "),
			Body:    knowledgeBody,
			TopicID: knowledgeTopic,
			Tags:    knowledgeTags,
		}, services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

var inboxCmd = &cobra.Command{
	Use:   "inbox <content>",
	Short: "Propose capturing a raw thought for later triage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServices()
		if err != nil {
			return MapError(err)
		}
		cs, err := services.Changes.ProposeCaptureInbox(cmd.Context(),
			strings.Join(args, " "), "", services.Client.DefaultActor())
		if err != nil {
			return MapError(err)
		}
		return printChangeSet(cs)
	},
}

func init() {
	todoCmd.Flags().StringVar(&todoDescription, "description", "", "Todo description")
	todoCmd.Flags().StringVarP(&todoPriority, "priority", "p", "", "Priority (P0..P3)")
	todoCmd.Flags().StringVar(&todoDue, "due", "", "Due date (YYYY-MM-DD)")
	todoCmd.Flags().StringVar(&todoTopic, "topic", "", "Topic id for new tasks")

	journalShowCmd.Flags().BoolVar(&journalListJSON, "json", false, "Output in JSON format")

	knowledgeRecordCmd.Flags().StringVar(&knowledgeBody, "body", "", "Note body (required)")
	knowledgeRecordCmd.Flags().StringVar(&knowledgeTopic, "topic", "", "Topic id")
	knowledgeRecordCmd.Flags().StringSliceVar(&knowledgeTags, "tag", nil, "Tags for new notes")
	_ = knowledgeRecordCmd.MarkFlagRequired("body")
	knowledgeSearchCmd.Flags().StringVar(&knowledgeTopic, "topic", "", "Topic id")

	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalAppendCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeRecordCmd)

	RootCmd.AddCommand(todoCmd)
	RootCmd.AddCommand(journalCmd)
	RootCmd.AddCommand(knowledgeCmd)
	RootCmd.AddCommand(inboxCmd)
}
