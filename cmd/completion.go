package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chris/railtl/internal/db"
	"github.com/chris/railtl/pkg/models"
)

func init() {
	// Register custom completions after all commands are initialized
	cobra.OnInitialize(registerCompletions)
}

func registerCompletions() {
	// --db flag: complete with .db files
	rootCmd.RegisterFlagCompletionFunc("db", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"db"}, cobra.ShellCompDirectiveFilterFileExt
	})
	rootCmd.RegisterFlagCompletionFunc("config", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
	rootCmd.RegisterFlagCompletionFunc("project", completeProject)
	rootCmd.RegisterFlagCompletionFunc("log-level", fixedCompletions("debug", "info", "warn", "error"))

	for _, c := range []*cobra.Command{columnsCmd, placeCmd, tuiCmd} {
		c.RegisterFlagCompletionFunc("zoom", fixedCompletions("minute", "5m", "15m", "hour", "day", "week", "month"))
	}
	for _, c := range []*cobra.Command{placeCmd, startCmd, stopCmd, tuiCmd} {
		c.RegisterFlagCompletionFunc("env", completeEnvironment)
	}
	placeCmd.RegisterFlagCompletionFunc("service", completeService)
	startCmd.ValidArgsFunction = completeServiceArg
	stopCmd.ValidArgsFunction = completeServiceArg

	summaryCmd.RegisterFlagCompletionFunc("date", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"yesterday\tYesterday's deployments",
			"today\tToday's deployments",
		}, cobra.ShellCompDirectiveNoFileComp
	})
	summaryCmd.RegisterFlagCompletionFunc("color", fixedCompletions("auto", "always", "never"))
}

func fixedCompletions(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// storedProject loads the selected project for completions. Errors yield nil.
func storedProject() *models.Project {
	database, err := db.New(dbPath)
	if err != nil {
		return nil
	}
	defer database.Close()

	project, err := resolveProject(database, projectRef)
	if err != nil {
		return nil
	}
	return project
}

// completeProject returns stored projects as id<TAB>name
func completeProject(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	database, err := db.New(dbPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer database.Close()

	projects, err := database.ListProjects()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, p := range projects {
		completions = append(completions, fmt.Sprintf("%s\t%s", p.ID, p.Name))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func completeEnvironment(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	project := storedProject()
	if project == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, env := range project.Environments {
		completions = append(completions, env.Name)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func completeService(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	project := storedProject()
	if project == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var completions []string
	for _, svc := range project.Services {
		completions = append(completions, svc.Name)
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func completeServiceArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return completeService(cmd, args, toComplete)
}
