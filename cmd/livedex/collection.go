package main

import (
	"fmt"
	"strconv"

	"github.com/hflor/livedex/internal/store"
	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"coll"},
	Short:   "Group projects into ordered collections",
	Long: `Collections are ordered groups of projects, useful for planning
releases, live sets and album tracklists.`,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionCreate,
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	RunE:  runCollectionList,
}

var collectionShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a collection's projects in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionShow,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection (projects are kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionDelete,
}

var collectionAddCmd = &cobra.Command{
	Use:   "add <name> <project>",
	Short: "Append a project to a collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runCollectionAdd,
}

var collectionRmCmd = &cobra.Command{
	Use:   "rm <name> <project>",
	Short: "Remove a project from a collection",
	Args:  cobra.ExactArgs(2),
	RunE:  runCollectionRm,
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionListCmd)
	collectionCmd.AddCommand(collectionShowCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionRmCmd)

	collectionCreateCmd.Flags().String("description", "", "what this collection is for")
}

func getCollection(db *store.Store, name string) (*store.Collection, error) {
	coll, err := db.GetCollectionByName(name)
	if err != nil {
		return nil, err
	}
	if coll == nil {
		return nil, fmt.Errorf("no collection named %q", name)
	}
	return coll, nil
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := db.CreateCollection(args[0], description)
	if err != nil {
		return err
	}
	util.SuccessLog("Created collection %s", coll.Name)
	return nil
}

func runCollectionList(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	colls, err := db.ListCollections()
	if err != nil {
		return err
	}
	if len(colls) == 0 {
		util.InfoLog("No collections yet")
		return nil
	}

	rows := make([][]string, 0, len(colls))
	for _, c := range colls {
		entries, err := db.ListCollectionProjects(c.ID)
		if err != nil {
			return err
		}
		rows = append(rows, []string{c.Name, c.Description, strconv.Itoa(len(entries))})
	}
	fmt.Println(renderTable(
		[]string{"Name", "Description", "Projects"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	))
	return nil
}

func runCollectionShow(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := getCollection(db, args[0])
	if err != nil {
		return err
	}

	entries, err := db.ListCollectionProjects(coll.ID)
	if err != nil {
		return err
	}

	fmt.Printf("%s", coll.Name)
	if coll.Description != "" {
		fmt.Printf(" - %s", coll.Description)
	}
	fmt.Println()

	if len(entries) == 0 {
		util.InfoLog("Collection is empty")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := append([]string{strconv.Itoa(e.Position)}, projectRow(e.Project)...)
		rows = append(rows, row)
	}
	headers := append([]string{"#"}, projectHeaders...)
	aligns := append([]columnAlignment{alignRight}, projectAligns...)
	fmt.Println(renderTable(headers, rows, aligns))
	return nil
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := getCollection(db, args[0])
	if err != nil {
		return err
	}
	if err := db.DeleteCollection(coll.ID); err != nil {
		return err
	}
	util.SuccessLog("Deleted collection %s", coll.Name)
	return nil
}

func runCollectionAdd(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := getCollection(db, args[0])
	if err != nil {
		return err
	}
	p, err := resolveProject(db, args[1])
	if err != nil {
		return err
	}
	if err := db.AddToCollection(coll.ID, p.ID); err != nil {
		return err
	}
	util.SuccessLog("Added %s to %s", p.Name, coll.Name)
	return nil
}

func runCollectionRm(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	coll, err := getCollection(db, args[0])
	if err != nil {
		return err
	}
	p, err := resolveProject(db, args[1])
	if err != nil {
		return err
	}
	if err := db.RemoveFromCollection(coll.ID, p.ID); err != nil {
		return err
	}
	util.SuccessLog("Removed %s from %s", p.Name, coll.Name)
	return nil
}
