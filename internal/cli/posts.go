package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"anime-api/internal/model"
)

func postsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Create and list posts",
	}
	cmd.AddCommand(createPostCmd(opts), listPostsCmd(opts))
	return cmd
}

func createPostCmd(opts *options) *cobra.Command {
	var title, embedURL, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post as the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.loadToken()
			if err != nil {
				return err
			}
			post := NewPost{Title: title, EmbedURL: embedURL}
			if cmd.Flags().Changed("description") {
				post.Description = &description
			}
			created, err := opts.client().CreatePost(cmd.Context(), token, post)
			if err != nil {
				return fmt.Errorf("create post failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created post %s.\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "post title")
	cmd.Flags().StringVar(&embedURL, "embed-url", "", "embed URL")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("embed-url")
	return cmd
}

func listPostsCmd(opts *options) *cobra.Command {
	var skip, limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			posts, err := opts.client().ListPosts(cmd.Context(), skip, limit)
			if err != nil {
				return fmt.Errorf("list posts failed: %w", err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(posts)
			}
			renderPosts(cmd.OutOrStdout(), posts)
			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "number of posts to skip")
	cmd.Flags().IntVar(&limit, "limit", -1, "page size (server default when unset)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func renderPosts(w io.Writer, posts []model.Post) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Title", "Embed URL", "Description", "Owner", "Created"})
	for _, p := range posts {
		desc := ""
		if p.Description != nil {
			desc = *p.Description
		}
		t.AppendRow(table.Row{p.ID, p.Title, p.EmbedURL, desc, p.OwnerID, p.CreatedAt.Format(time.RFC3339)})
	}
	t.Render()
}
