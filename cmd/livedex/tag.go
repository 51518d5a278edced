package main

import (
	"fmt"
	"strconv"

	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage tags and tag assignments",
}

var tagCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagCreate,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tags",
	RunE:  runTagList,
}

var tagDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a tag and all its assignments",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagDelete,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name> <project>",
	Short: "Assign a tag to a project",
	Long:  `Assign a tag to a project. The tag is created if it does not exist yet.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runTagAdd,
}

var tagRmCmd = &cobra.Command{
	Use:   "rm <name> <project>",
	Short: "Remove a tag from a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagRm,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagCreateCmd)
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagDeleteCmd)
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRmCmd)

	tagCreateCmd.Flags().String("color", "", "display color, e.g. #ff8800")
}

func runTagCreate(cmd *cobra.Command, args []string) error {
	color, _ := cmd.Flags().GetString("color")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	tag, err := db.CreateTag(args[0], color)
	if err != nil {
		return err
	}
	util.SuccessLog("Created tag %s", tag.Name)
	return nil
}

func runTagList(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	tags, err := db.ListTags()
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		util.InfoLog("No tags yet")
		return nil
	}

	rows := make([][]string, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, []string{t.Name, t.Color, strconv.FormatInt(t.ID, 10)})
	}
	fmt.Println(renderTable(
		[]string{"Name", "Color", "Id"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	return nil
}

func runTagDelete(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	tag, err := db.GetTagByName(args[0])
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("no tag named %q", args[0])
	}
	if err := db.DeleteTag(tag.ID); err != nil {
		return err
	}
	util.SuccessLog("Deleted tag %s", tag.Name)
	return nil
}

func runTagAdd(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[1])
	if err != nil {
		return err
	}

	tag, err := db.GetTagByName(args[0])
	if err != nil {
		return err
	}
	if tag == nil {
		if tag, err = db.CreateTag(args[0], ""); err != nil {
			return err
		}
	}

	if err := db.AssignTag(p.ID, tag.ID); err != nil {
		return err
	}
	util.SuccessLog("Tagged %s with %s", p.Name, tag.Name)
	return nil
}

func runTagRm(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[1])
	if err != nil {
		return err
	}
	tag, err := db.GetTagByName(args[0])
	if err != nil {
		return err
	}
	if tag == nil {
		return fmt.Errorf("no tag named %q", args[0])
	}
	if err := db.UnassignTag(p.ID, tag.ID); err != nil {
		return err
	}
	util.SuccessLog("Removed tag %s from %s", tag.Name, p.Name)
	return nil
}
