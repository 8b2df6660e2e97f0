package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/logger"
)

// SeedLibraries loads the starter reference content a new deployment ships
// with. Upserts by (tenant, kind, code), so reseeding is safe.
func (c *Client) SeedLibraries(ctx context.Context, tenantID string) error {
	now := time.Now()
	total := 0

	for _, entry := range seedEntries() {
		e := entry
		e.ID = uuid.New().String()
		e.IsActive = true
		e.CreatedAt = now
		e.UpdatedAt = now

		if err := c.UpsertLibraryEntry(ctx, tenantID, &e); err != nil {
			return fmt.Errorf("failed to seed %s %s: %w", e.Kind, e.Code, err)
		}
		total++
	}

	logger.Info("Library seed completed", zap.Int("entries", total))
	return nil
}

func seedEntries() []models.LibraryEntry {
	return []models.LibraryEntry{
		{
			Kind: models.KindHazard, Code: "HAZ-001", Name: "Fall from Height",
			Description: "Falls from ladders, scaffolds, roofs or other elevated work positions.",
			Keywords:    []string{"fall", "height", "ladder", "scaffold", "roof", "edge"},
			Category:    "working-at-height", SortOrder: 10,
			DefaultLikelihood: 3, DefaultSeverity: 5,
		},
		{
			Kind: models.KindHazard, Code: "HAZ-002", Name: "Manual Handling Injury",
			Description: "Musculoskeletal injury from lifting, carrying or repetitive movement.",
			Keywords:    []string{"lifting", "carrying", "manual", "handling", "heavy", "strain"},
			Category:    "manual-handling", SortOrder: 20,
			DefaultLikelihood: 3, DefaultSeverity: 3,
		},
		{
			Kind: models.KindHazard, Code: "HAZ-003", Name: "Electric Shock",
			Description: "Contact with live conductors, buried services or damaged equipment.",
			Keywords:    []string{"electric", "shock", "cable", "voltage", "live", "wiring"},
			Category:    "electrical", SortOrder: 30,
			DefaultLikelihood: 2, DefaultSeverity: 5,
		},
		{
			Kind: models.KindHazard, Code: "HAZ-004", Name: "Silica Dust Exposure",
			Description: "Respirable crystalline silica released when cutting or grinding concrete and masonry.",
			Keywords:    []string{"dust", "silica", "cutting", "grinding", "concrete", "respiratory"},
			Category:    "hazardous-substances", SortOrder: 40,
			DefaultLikelihood: 4, DefaultSeverity: 4,
		},
		{
			Kind: models.KindHazard, Code: "HAZ-005", Name: "Struck by Moving Plant",
			Description: "Pedestrian workers struck by excavators, dumpers or delivery vehicles.",
			Keywords:    []string{"plant", "vehicle", "excavator", "dumper", "traffic", "reversing"},
			Category:    "site-traffic", SortOrder: 50,
			DefaultLikelihood: 2, DefaultSeverity: 5,
		},
		{
			Kind: models.KindHazard, Code: "HAZ-006", Name: "Excavation Collapse",
			Description: "Trench or excavation wall collapse burying or trapping workers.",
			Keywords:    []string{"excavation", "trench", "collapse", "shoring", "digging"},
			Category:    "groundworks", SortOrder: 60,
			DefaultLikelihood: 2, DefaultSeverity: 5,
		},

		{
			Kind: models.KindControl, Code: "CTL-001", Name: "Use Scaffold Instead of Ladder",
			Description: "Substitute ladder work with a fixed scaffold or tower providing edge protection.",
			Keywords:    []string{"scaffold", "tower", "ladder", "height", "platform", "edge"},
			Category:    "working-at-height", SortOrder: 10,
			HierarchyTier: models.TierSubstitution, LikelihoodReduction: 2, SeverityReduction: 1,
		},
		{
			Kind: models.KindControl, Code: "CTL-002", Name: "Install Guard Rails and Toe Boards",
			Description: "Fit compliant guard rails, mid rails and toe boards to all open edges.",
			Keywords:    []string{"guard", "rail", "edge", "protection", "height", "fall"},
			Category:    "working-at-height", SortOrder: 20,
			HierarchyTier: models.TierEngineering, LikelihoodReduction: 2, SeverityReduction: 0,
		},
		{
			Kind: models.KindControl, Code: "CTL-003", Name: "Safety Harness and Lanyard",
			Description: "Full body harness clipped to a rated anchor where collective protection is impractical.",
			Keywords:    []string{"harness", "lanyard", "anchor", "fall", "arrest", "height"},
			Category:    "working-at-height", SortOrder: 30,
			HierarchyTier: models.TierPPE, LikelihoodReduction: 0, SeverityReduction: 2,
		},
		{
			Kind: models.KindControl, Code: "CTL-004", Name: "Mechanical Lifting Aids",
			Description: "Use hoists, trolleys or telehandlers to eliminate manual lifting of heavy loads.",
			Keywords:    []string{"hoist", "trolley", "lifting", "manual", "handling", "mechanical"},
			Category:    "manual-handling", SortOrder: 40,
			HierarchyTier: models.TierElimination, LikelihoodReduction: 3, SeverityReduction: 1,
		},
		{
			Kind: models.KindControl, Code: "CTL-005", Name: "Permit to Work for Live Services",
			Description: "Isolate, lock off and prove dead before work; permit controls any live working.",
			Keywords:    []string{"permit", "isolation", "electric", "lock", "live", "services"},
			Category:    "electrical", SortOrder: 50,
			HierarchyTier: models.TierAdministrative, LikelihoodReduction: 2, SeverityReduction: 1,
		},
		{
			Kind: models.KindControl, Code: "CTL-006", Name: "On-Tool Dust Extraction",
			Description: "Fit local exhaust ventilation or water suppression to cutting and grinding tools.",
			Keywords:    []string{"extraction", "ventilation", "dust", "suppression", "cutting", "silica"},
			Category:    "hazardous-substances", SortOrder: 60,
			HierarchyTier: models.TierEngineering, LikelihoodReduction: 3, SeverityReduction: 1,
		},
		{
			Kind: models.KindControl, Code: "CTL-007", Name: "Segregated Pedestrian Routes",
			Description: "Physical barriers separating foot traffic from plant movement, with banksman control.",
			Keywords:    []string{"segregation", "barrier", "pedestrian", "plant", "traffic", "banksman"},
			Category:    "site-traffic", SortOrder: 70,
			HierarchyTier: models.TierEngineering, LikelihoodReduction: 3, SeverityReduction: 0,
		},
		{
			Kind: models.KindControl, Code: "CTL-008", Name: "Toolbox Talk Before Task",
			Description: "Briefing covering the task, its hazards and agreed controls before work starts.",
			Keywords:    []string{"briefing", "toolbox", "talk", "training", "awareness"},
			Category:    "", SortOrder: 80,
			HierarchyTier: models.TierAdministrative, LikelihoodReduction: 1, SeverityReduction: 0,
		},

		{
			Kind: models.KindLegislation, Code: "LEG-001", Name: "Work at Height Regulations 2005",
			Description: "Duties to plan, supervise and carry out work at height safely.",
			Keywords:    []string{"height", "fall", "ladder", "scaffold", "roof"},
			Category:    "working-at-height", SortOrder: 10,
		},
		{
			Kind: models.KindLegislation, Code: "LEG-002", Name: "Manual Handling Operations Regulations 1992",
			Description: "Requires avoidance or assessment and reduction of hazardous manual handling.",
			Keywords:    []string{"manual", "handling", "lifting", "load", "carrying"},
			Category:    "manual-handling", SortOrder: 20,
		},
		{
			Kind: models.KindLegislation, Code: "LEG-003", Name: "Electricity at Work Regulations 1989",
			Description: "Precautions against risk of death or injury from electricity at work.",
			Keywords:    []string{"electric", "electricity", "voltage", "live", "isolation"},
			Category:    "electrical", SortOrder: 30,
		},
		{
			Kind: models.KindLegislation, Code: "LEG-004", Name: "COSHH Regulations 2002",
			Description: "Control of substances hazardous to health, including construction dusts.",
			Keywords:    []string{"dust", "silica", "substances", "hazardous", "exposure", "coshh"},
			Category:    "hazardous-substances", SortOrder: 40,
		},
		{
			Kind: models.KindLegislation, Code: "LEG-005", Name: "CDM Regulations 2015",
			Description: "Construction design and management duties across all notifiable projects.",
			Keywords:    []string{"construction", "design", "management", "planning", "site"},
			Category:    "", SortOrder: 50,
		},

		{
			Kind: models.KindSop, Code: "SOP-001", Name: "Working at Height Procedure",
			Description: "Step-by-step procedure for planning, equipping and supervising work at height.",
			Keywords:    []string{"height", "ladder", "scaffold", "harness", "inspection"},
			Category:    "working-at-height", SortOrder: 10,
		},
		{
			Kind: models.KindSop, Code: "SOP-002", Name: "Safe Lifting Procedure",
			Description: "Assessment, technique and team lifting rules for manual handling tasks.",
			Keywords:    []string{"lifting", "manual", "handling", "technique", "load"},
			Category:    "manual-handling", SortOrder: 20,
		},
		{
			Kind: models.KindSop, Code: "SOP-003", Name: "Buried Services Procedure",
			Description: "Locating, marking and safe digging practice near underground services.",
			Keywords:    []string{"excavation", "digging", "services", "cable", "scanning", "trench"},
			Category:    "groundworks", SortOrder: 30,
		},
		{
			Kind: models.KindSop, Code: "SOP-004", Name: "Dust Control Procedure",
			Description: "Selection of extraction, suppression and RPE for dust generating tasks.",
			Keywords:    []string{"dust", "extraction", "suppression", "rpe", "cutting"},
			Category:    "hazardous-substances", SortOrder: 40,
		},
	}
}
