package jobs

import (
	"context"
	"time"

	"github.com/emrgen/panorama/internal/service"
	"github.com/sirupsen/logrus"
)

// LinkRepairTask periodically repairs the links of every project, picking up
// what best-effort cascades left behind.
type LinkRepairTask struct {
	projects *service.ProjectService
	photos   *service.PanophotoService
	schedule string
	timeout  time.Duration
}

func NewLinkRepairTask(schedule string, projects *service.ProjectService, photos *service.PanophotoService) *LinkRepairTask {
	return &LinkRepairTask{
		projects: projects,
		photos:   photos,
		schedule: schedule,
		timeout:  5 * time.Minute,
	}
}

func (l *LinkRepairTask) Name() string {
	return "link_repair"
}

func (l *LinkRepairTask) Schedule() string {
	return l.schedule
}

func (l *LinkRepairTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if _, err := l.RepairAll(ctx); err != nil {
		logrus.Errorf("link repair failed: %v", err)
	}
}

// RepairAll repairs every project. A project that cannot be listed is skipped
// and the others still run.
func (l *LinkRepairTask) RepairAll(ctx context.Context) ([]*service.RepairReport, error) {
	projects, err := l.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]*service.RepairReport, 0, len(projects))
	for _, project := range projects {
		report, err := l.photos.RepairProjectLinks(ctx, project.ID)
		if err != nil {
			logrus.Warnf("failed to repair links of project %s: %v", project.ID, err)
			continue
		}
		reports = append(reports, report)
	}

	return reports, nil
}
