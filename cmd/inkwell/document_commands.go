package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"inkwell/internal/api"
	"inkwell/internal/recordaccess"
	"inkwell/internal/storage"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		documentID  string
		contentType string
		title       string
		author      string
		tags        []string
		dispatchNow bool
	)

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a file and register it as a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			info, err := os.Stat(args[0])
			if err != nil {
				return fmt.Errorf("stat %s: %w", args[0], err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", args[0])
			}

			resolvedType := contentType
			if resolvedType == "" {
				resolvedType = mime.TypeByExtension(filepath.Ext(args[0]))
			}
			if resolvedType == "" {
				return fmt.Errorf("cannot infer a content type for %s; pass --content-type", args[0])
			}

			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer file.Close()

			objects, err := storage.NewS3(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}
			key := storage.UploadKey(filepath.Base(args[0]))
			if err := objects.Put(cmd.Context(), cfg.Storage.Bucket, key, resolvedType, file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s to %s/%s\n", args[0], cfg.Storage.Bucket, key)

			req := api.IntakeRequest{
				DocumentID:  documentID,
				Bucket:      cfg.Storage.Bucket,
				Key:         key,
				ContentType: resolvedType,
				SizeBytes:   info.Size(),
				Metadata: api.Metadata{
					Title:  title,
					Author: author,
					Tags:   tags,
				},
			}

			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				doc, err := access.Intake(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s tier, status %s)\n", doc.DocumentID, doc.Tier, doc.Status)

				if !dispatchNow {
					return nil
				}
				outcome, err := access.Dispatch(cmd.Context(), doc.DocumentID, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s (token %s)\n", outcome.DocumentID, outcome.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&documentID, "id", "", "Document ID (optional; makes the create idempotent)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Object content type (default: inferred from the extension)")
	cmd.Flags().StringVar(&title, "title", "", "Document title")
	cmd.Flags().StringVar(&author, "author", "", "Document author")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Document tag (repeatable)")
	cmd.Flags().BoolVar(&dispatchNow, "dispatch", false, "Dispatch for processing immediately after intake")
	return cmd
}

func newDocumentsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Inspect documents",
	}
	cmd.AddCommand(newDocumentsListCommand(ctx))
	cmd.AddCommand(newDocumentsShowCommand(ctx))
	return cmd
}

func newDocumentsListCommand(ctx *commandContext) *cobra.Command {
	var (
		statuses   []string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				docs, err := access.List(cmd.Context(), statuses, limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.DocumentListResponse{Documents: docs})
				}
				if len(docs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No documents found")
					return nil
				}

				rows := make([][]string, 0, len(docs))
				for _, doc := range docs {
					title := doc.Metadata.Title
					if title == "" {
						title = doc.SourceKey
					}
					rows = append(rows, []string{
						doc.DocumentID,
						title,
						doc.Tier,
						doc.Status,
						strconv.Itoa(doc.PageCount),
						yesNo(doc.UserEdited),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Tier", "Status", "Pages", "Edited"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum documents to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output documents as JSON")
	return cmd
}

func newDocumentsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <document-id>",
		Short: "Show one document in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				doc, err := access.Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if doc == nil {
					return fmt.Errorf("document %s not found", args[0])
				}
				if jsonOutput {
					return writeJSON(cmd, api.DocumentResponse{Document: *doc})
				}
				printDocument(cmd, doc)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the document as JSON")
	return cmd
}

func printDocument(cmd *cobra.Command, doc *api.Document) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Document "+doc.DocumentID))
	fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Status", doc.Status))
	fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Tier", doc.Tier))
	fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Source", doc.SourceBucket+"/"+doc.SourceKey))
	fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Content type", doc.ContentType))
	fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Size", strconv.FormatInt(doc.SizeBytes, 10)+" bytes"))
	if doc.Metadata.Title != "" {
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Title", doc.Metadata.Title))
	}
	if doc.Metadata.Author != "" {
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Author", doc.Metadata.Author))
	}
	if len(doc.Metadata.Tags) > 0 {
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Tags", strings.Join(doc.Metadata.Tags, ", ")))
	}
	if doc.LastError != "" {
		fmt.Fprintln(out, renderStatusLine(colorize, statusError, "Last error", doc.LastError))
	}

	if doc.Result != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSectionHeader("Result"))
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Language", doc.Result.Language))
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Pages", strconv.Itoa(doc.Result.PageCount)))
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Words", strconv.Itoa(doc.Result.WordCount)))
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Quality", fmt.Sprintf("%.2f", doc.Result.QualityScore)))
		if doc.Result.ResultKey != "" {
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Result key", doc.Result.ResultKey))
		}
	}

	if doc.UserEdited {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderSectionHeader("Edits"))
		fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, "Last edited", doc.LastEdited))
		for _, entry := range doc.EditHistory {
			fmt.Fprintln(out, renderStatusLine(colorize, statusInfo, entry.EditedAt, strings.Join(entry.EditedFields, ", ")))
		}
	}
}

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	var tier string

	cmd := &cobra.Command{
		Use:   "dispatch <document-id>",
		Short: "Queue a document for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				outcome, err := access.Dispatch(cmd.Context(), args[0], tier)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dispatched %s (status %s, token %s)\n", outcome.DocumentID, outcome.Status, outcome.Token)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&tier, "tier", "", "Cross-check the routing tier (fast or heavy)")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <document-id>",
		Short: "Requeue a failed document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				outcome, err := access.Retry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %s (status %s, token %s)\n", outcome.DocumentID, outcome.Status, outcome.Token)
				return nil
			})
		},
	}
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var (
		refinedText   string
		formattedText string
		title         string
		author        string
		publication   string
		year          int
		description   string
		tags          []string
	)

	cmd := &cobra.Command{
		Use:   "edit <document-id>",
		Short: "Edit a processed document's text or metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.EditRequest
			if cmd.Flags().Changed("refined-text") {
				req.RefinedText = &refinedText
			}
			if cmd.Flags().Changed("formatted-text") {
				req.FormattedText = &formattedText
			}
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("author") {
				req.Author = &author
			}
			if cmd.Flags().Changed("publication") {
				req.Publication = &publication
			}
			if cmd.Flags().Changed("year") {
				req.Year = &year
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("tag") {
				req.Tags = &tags
			}
			if req.IsZero() {
				return fmt.Errorf("no fields to edit; pass at least one flag")
			}

			return ctx.withAccess(cmd.Context(), func(access recordaccess.Access) error {
				doc, err := access.Edit(cmd.Context(), args[0], req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Edited %s (%d history entries)\n", doc.DocumentID, len(doc.EditHistory))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&refinedText, "refined-text", "", "Replace the refined text")
	cmd.Flags().StringVar(&formattedText, "formatted-text", "", "Replace the formatted text")
	cmd.Flags().StringVar(&title, "title", "", "Set the title")
	cmd.Flags().StringVar(&author, "author", "", "Set the author")
	cmd.Flags().StringVar(&publication, "publication", "", "Set the publication")
	cmd.Flags().IntVar(&year, "year", 0, "Set the publication year")
	cmd.Flags().StringVar(&description, "description", "", "Set the description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Set the tags (repeatable; replaces the set)")
	return cmd
}
