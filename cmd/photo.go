package cmd

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/emrgen/panorama/internal/geometry"
	"github.com/emrgen/panorama/internal/jobs"
	"github.com/emrgen/panorama/internal/viewer"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "panophoto commands",
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "panophoto link commands",
}

func init() {
	rootCmd.AddCommand(photoCmd)
	photoCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	photoCmd.AddCommand(uploadPhotoCmd())
	photoCmd.AddCommand(listPhotosCmd())
	photoCmd.AddCommand(movePhotoCmd())
	photoCmd.AddCommand(unplacePhotoCmd())
	photoCmd.AddCommand(deletePhotoCmd())
	photoCmd.AddCommand(markersCmd())

	rootCmd.AddCommand(linkCmd)
	linkCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	linkCmd.AddCommand(addLinkCmd())
	linkCmd.AddCommand(removeLinkCmd())
	linkCmd.AddCommand(offsetLinkCmd())
	linkCmd.AddCommand(repairLinksCmd())
}

func uploadPhotoCmd() *cobra.Command {
	var projectID string
	var name string
	var file string

	command := &cobra.Command{
		Use:   "upload",
		Short: "upload an unplaced panophoto",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id", "file") {
				return
			}

			image, err := os.Open(file)
			if err != nil {
				fail(err)
			}
			defer image.Close()

			ext := filepath.Ext(file)
			if name == "" {
				name = filepath.Base(file[:len(file)-len(ext)])
			}

			ctx := context.Background()
			photo, err := newServices(ctx).photos.CreatePhoto(ctx, projectID, name, image, mime.TypeByExtension(ext), ext)
			if err != nil {
				fail(err)
			}

			color.Green("uploaded panophoto %s", photo.ID)
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")
	command.Flags().StringVarP(&name, "name", "n", "", "panophoto name, defaults to the file name")
	command.Flags().StringVarP(&file, "file", "f", "", "image file")

	return command
}

func listPhotosCmd() *cobra.Command {
	var projectID string

	command := &cobra.Command{
		Use:   "list",
		Short: "list the panophotos of a project",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "project-id") {
				return
			}

			ctx := context.Background()
			photos, err := newServices(ctx).photos.ListPhotos(ctx, projectID)
			if err != nil {
				fail(err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"ID", "Name", "Level", "X", "Y", "Links"})
			for _, photo := range photos {
				table.Append([]string{
					photo.ID,
					photo.Name,
					lo.FromPtr(photo.LevelID),
					strconv.FormatFloat(photo.XPosition, 'f', 3, 64),
					strconv.FormatFloat(photo.YPosition, 'f', 3, 64),
					strconv.Itoa(len(photo.LinkList())),
				})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&projectID, "project-id", "p", "", "project id")

	return command
}

func movePhotoCmd() *cobra.Command {
	var photoID string
	var levelID string
	var x, y float64

	command := &cobra.Command{
		Use:   "move",
		Short: "place a panophoto on the canvas",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "id", "x", "y") {
				return
			}

			ctx := context.Background()
			result, err := newServices(ctx).photos.MovePhoto(ctx, photoID, geometry.Point{X: x, Y: y}, lo.EmptyableToPtr(levelID))
			if err != nil {
				fail(err)
			}

			printWarnings(&result.CascadeResult)
			color.Green("moved panophoto %s, updated %d neighbors", photoID, len(result.AffectedNeighborIDs))
		},
	}

	command.Flags().StringVarP(&photoID, "id", "i", "", "panophoto id")
	command.Flags().StringVarP(&levelID, "level-id", "l", "", "level id, defaults to the current level")
	command.Flags().Float64VarP(&x, "x", "x", 0, "canvas-relative x position")
	command.Flags().Float64VarP(&y, "y", "y", 0, "canvas-relative y position")

	return command
}

func unplacePhotoCmd() *cobra.Command {
	var photoID string

	command := &cobra.Command{
		Use:   "unplace",
		Short: "take a panophoto off the canvas and drop its links",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "id") {
				return
			}

			ctx := context.Background()
			result, err := newServices(ctx).photos.UnplacePhoto(ctx, photoID)
			if err != nil {
				fail(err)
			}

			printWarnings(&result.CascadeResult)
			color.Green("unplaced panophoto %s", photoID)
		},
	}

	command.Flags().StringVarP(&photoID, "id", "i", "", "panophoto id")

	return command
}

func deletePhotoCmd() *cobra.Command {
	var photoID string

	command := &cobra.Command{
		Use:   "delete",
		Short: "delete a panophoto",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "id") {
				return
			}

			ctx := context.Background()
			result, err := newServices(ctx).photos.DeletePhoto(ctx, photoID)
			if err != nil {
				fail(err)
			}

			printWarnings(result)
			color.Green("deleted panophoto %s", photoID)
		},
	}

	command.Flags().StringVarP(&photoID, "id", "i", "", "panophoto id")

	return command
}

func markersCmd() *cobra.Command {
	var photoID string

	command := &cobra.Command{
		Use:   "markers",
		Short: "show the viewer markers of a panophoto",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "id") {
				return
			}

			ctx := context.Background()
			svc := newServices(ctx)
			photo, err := svc.photos.GetPhoto(ctx, photoID)
			if err != nil {
				fail(err)
			}
			neighbors, err := svc.photos.Neighbors(ctx, photo)
			if err != nil {
				fail(err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Target", "Label", "Azimuth", "Offset", "Yaw"})
			for _, marker := range viewer.BuildMarkers(photo, neighbors, viewer.MarkerOptions{}) {
				table.Append([]string{
					marker.Data.TargetID,
					marker.Data.Label,
					strconv.FormatFloat(marker.Data.Azimuth, 'f', 2, 64),
					strconv.FormatFloat(marker.Data.AzimuthOffset, 'f', 2, 64),
					strconv.FormatFloat(marker.Yaw, 'f', 2, 64),
				})
			}
			table.Render()
		},
	}

	command.Flags().StringVarP(&photoID, "id", "i", "", "panophoto id")

	return command
}

func addLinkCmd() *cobra.Command {
	var sourceID string
	var targetID string

	command := &cobra.Command{
		Use:   "add",
		Short: "link two panophotos",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "source", "target") {
				return
			}

			ctx := context.Background()
			if _, err := newServices(ctx).photos.LinkPhotos(ctx, sourceID, targetID); err != nil {
				fail(err)
			}

			color.Green("linked %s <-> %s", sourceID, targetID)
		},
	}

	command.Flags().StringVarP(&sourceID, "source", "s", "", "source panophoto id")
	command.Flags().StringVarP(&targetID, "target", "t", "", "target panophoto id")

	return command
}

func removeLinkCmd() *cobra.Command {
	var sourceID string
	var targetID string

	command := &cobra.Command{
		Use:   "remove",
		Short: "unlink two panophotos",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "source", "target") {
				return
			}

			ctx := context.Background()
			if _, err := newServices(ctx).photos.UnlinkPhotos(ctx, sourceID, targetID); err != nil {
				fail(err)
			}

			color.Green("unlinked %s <-> %s", sourceID, targetID)
		},
	}

	command.Flags().StringVarP(&sourceID, "source", "s", "", "source panophoto id")
	command.Flags().StringVarP(&targetID, "target", "t", "", "target panophoto id")

	return command
}

func offsetLinkCmd() *cobra.Command {
	var sourceID string
	var targetID string
	var offset float64

	command := &cobra.Command{
		Use:   "offset",
		Short: "set the azimuth offset of a link",
		Run: func(cmd *cobra.Command, args []string) {
			if !checkRequired(cmd, "source", "target", "offset") {
				return
			}

			ctx := context.Background()
			source, err := newServices(ctx).photos.SetLinkOffset(ctx, sourceID, targetID, offset)
			if err != nil {
				fail(err)
			}

			link, _ := source.LinkList().Find(targetID)
			color.Green("offset of %s -> %s is %.2f", sourceID, targetID, link.AzimuthOffset)
		},
	}

	command.Flags().StringVarP(&sourceID, "source", "s", "", "source panophoto id")
	command.Flags().StringVarP(&targetID, "target", "t", "", "target panophoto id")
	command.Flags().Float64VarP(&offset, "offset", "o", 0, "offset in degrees")

	return command
}

func repairLinksCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "repair",
		Short: "repair the links of every project once",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			svc := newServices(ctx)
			reports, err := jobs.NewLinkRepairTask("", svc.projects, svc.photos).RepairAll(ctx)
			if err != nil {
				fail(err)
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Project", "Upgraded", "Dropped", "Restored", "Warnings"})
			for _, report := range reports {
				table.Append([]string{
					report.ProjectID,
					strconv.Itoa(report.Upgraded),
					strconv.Itoa(report.Dropped),
					strconv.Itoa(report.Restored),
					strconv.Itoa(len(report.Warnings)),
				})
			}
			table.Render()
		},
	}

	return command
}
