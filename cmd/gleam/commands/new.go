package commands

import (
	"github.com/spf13/cobra"

	"github.com/brightly-salty/gleam/pkg/build"
	"github.com/brightly-salty/gleam/pkg/command"
	"github.com/brightly-salty/gleam/pkg/engine"
)

func newNewCommand(sel *selection) *cobra.Command {
	var (
		name       string
		template   = engine.TemplateErlang
		skipGit    bool
		skipGitHub bool
	)

	cmd := &cobra.Command{
		Use:   "new <project_root>",
		Short: "Create a new project",
		Example: `  # Create a JavaScript project in ./my_app
  gleam new my_app --template javascript`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sel.set(command.New{
				Root:        args[0],
				ProjectName: name,
				Template:    template,
				SkipGit:     skipGit,
				SkipGitHub:  skipGitHub,
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name of the project")
	cmd.Flags().Var(&template, "template", "The template to use ("+build.Join(engine.Templates)+")")
	cmd.Flags().BoolVar(&skipGit, "skip-git", false, "Skip git initialization and creation of .gitignore, .git/* and .github/* files")
	cmd.Flags().BoolVar(&skipGitHub, "skip-github", false, "Skip creation of .github/* files")

	return cmd
}
