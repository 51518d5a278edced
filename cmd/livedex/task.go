package main

import (
	"fmt"
	"strconv"

	"github.com/hflor/livedex/internal/util"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Track per-project to-do items",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <project> <description>",
	Short: "Add a task to a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's tasks, open first",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskList,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task complete",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskRmCmd)

	taskAddCmd.Flags().IntP("priority", "p", 0, "higher sorts first")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	priority, _ := cmd.Flags().GetInt("priority")

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[0])
	if err != nil {
		return err
	}
	task, err := db.CreateTask(p.ID, args[1], priority)
	if err != nil {
		return err
	}
	util.SuccessLog("Added task #%d to %s", task.ID, p.Name)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolveProject(db, args[0])
	if err != nil {
		return err
	}
	tasks, err := db.ListProjectTasks(p.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		util.InfoLog("No tasks for %s", p.Name)
		return nil
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		state := "open"
		if t.Completed {
			state = "done"
		}
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10),
			state,
			strconv.Itoa(t.Priority),
			t.Description,
		})
	}
	fmt.Println(renderTable(
		[]string{"Id", "State", "Prio", "Description"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.CompleteTask(id); err != nil {
		return err
	}
	util.SuccessLog("Completed task #%d", id)
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	db, err := openCatalog()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteTask(id); err != nil {
		return err
	}
	util.SuccessLog("Deleted task #%d", id)
	return nil
}
