package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/models"
)

var (
	techForm    models.TechnicianForm
	taskForm    models.TaskForm
	machineForm models.MachineForm
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "Add machines, technicians and tasks to the knowledge graph",
}

var technicianCmd = &cobra.Command{
	Use:   "technician <name>",
	Short: "Add a technician",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.ResourcePage](ctx, a, console.KindResources)
		if err != nil {
			return err
		}
		form := techForm
		form.Name = args[0]
		page.SetTechnician(form)
		if err := page.SubmitTechnician(ctx); err != nil {
			return err
		}
		renderAction(a.out, page.Snapshot().(console.ResourceSnapshot).TechnicianStatus)
		return nil
	},
}

var taskCmd = &cobra.Command{
	Use:   "task <title>",
	Short: "Add a maintenance task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.ResourcePage](ctx, a, console.KindResources)
		if err != nil {
			return err
		}
		form := taskForm
		form.Title = args[0]
		if form.TargetMachine != "" && !page.Options().State().Options.HasMachine(form.TargetMachine) {
			return fmt.Errorf("unknown machine %q", form.TargetMachine)
		}
		page.SetTask(form)
		if err := page.SubmitTask(ctx); err != nil {
			return err
		}
		renderAction(a.out, page.Snapshot().(console.ResourceSnapshot).TaskStatus)
		return nil
	},
}

var machineCmd = &cobra.Command{
	Use:   "machine <name>",
	Short: "Add a machine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.DashboardPage](ctx, a, console.KindDashboard)
		if err != nil {
			return err
		}
		form := machineForm
		form.Name = args[0]
		page.OpenMachine()
		page.SetMachineForm(form)
		if err := page.SubmitMachine(ctx); err != nil {
			return err
		}
		okColor.Fprintln(a.out, "Machine added to Knowledge Graph successfully.")
		return nil
	},
}

func init() {
	technicianCmd.Flags().StringVar(&techForm.Role, "role", models.DefaultTechRole, "Role")
	technicianCmd.Flags().StringVar(&techForm.CertificationLevel, "certification", models.DefaultCertification, "Certification level")
	technicianCmd.Flags().StringVar(&techForm.Status, "status", models.DefaultTechStatus, "Status")

	taskCmd.Flags().StringVar(&taskForm.Description, "description", "", "Description")
	taskCmd.Flags().StringVar(&taskForm.TargetMachine, "machine", "", "Target machine (defaults to the first known machine)")
	taskCmd.Flags().StringVar(&taskForm.RequiredCertification, "certification", models.DefaultCertification, "Required certification")
	taskCmd.Flags().StringVar(&taskForm.Priority, "priority", models.DefaultTaskPriority, "Priority")

	machineCmd.Flags().StringVar(&machineForm.Location, "location", "", "Location")
	machineCmd.Flags().StringVar(&machineForm.Type, "type", models.DefaultMachineType, "Machine type")

	resourcesCmd.AddCommand(technicianCmd, taskCmd, machineCmd)
}
