// Package stats shapes the participant statistics payload: check-ins
// against route checkpoints, trophies, and XP/level progression.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/advmx/rally-backend/internal/models"
)

var ErrRegistrationNotFound = errors.New("registration not found")

// DefaultLevelStep pads the XP required for the next level when the
// profile already sits on the last seeded level.
const DefaultLevelStep = 500

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type XPProgress struct {
	TotalXP     int     `json:"total_xp"`
	Level       int     `json:"level"`
	CurrentXP   int     `json:"current_xp"`
	NextXP      int     `json:"next_xp"`
	ProgressPct float64 `json:"progress_pct"`
	Label       string  `json:"label"`
}

type RouteXP struct {
	TotalXP int `json:"total_xp"`
}

type XPBlock struct {
	Global XPProgress `json:"global"`
	Route  RouteXP    `json:"route"`
}

type CheckpointStatus struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Points    int        `json:"points"`
	Position  int        `json:"position"`
	Visited   bool       `json:"visited"`
	VisitedAt *time.Time `json:"visited_at,omitempty"`
}

type TrophyView struct {
	ID          uuid.UUID              `json:"id"`
	EarnedAt    time.Time              `json:"earned_at"`
	Source      string                 `json:"source"`
	Metadata    map[string]interface{} `json:"metadata"`
	TypeCode    string                 `json:"type_code"`
	TypeName    string                 `json:"type_name"`
	TypeIcon    string                 `json:"type_icon"`
	TypeRarity  string                 `json:"type_rarity"`
	TypeXP      int                    `json:"type_xp_reward"`
	Description string                 `json:"type_description"`
}

type Summary struct {
	TotalCheckIns      int `json:"total_check_ins"`
	ValidCheckIns      int `json:"valid_check_ins"`
	CheckpointsVisited int `json:"checkpoints_visited"`
	CheckpointsTotal   int `json:"checkpoints_total"`
	PointsTotal        int `json:"points_total"`
}

type UserStats struct {
	Registration     *models.Registration `json:"eventProfile"`
	CheckIns         []models.CheckIn     `json:"checkins"`
	RouteCheckpoints []CheckpointStatus   `json:"route_checkpoints"`
	Stats            Summary              `json:"stats"`
	Trophies         []TrophyView         `json:"trophies"`
	XP               XPBlock              `json:"xp"`
}

func (s *Service) UserStats(ctx context.Context, registrationID uuid.UUID) (*UserStats, error) {
	var registration models.Registration
	err := s.db.WithContext(ctx).
		Preload("Profile").
		Preload("Route").
		First(&registration, "id = ?", registrationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}

	var checkIns []models.CheckIn
	err = s.db.WithContext(ctx).
		Preload("Checkpoint").
		Where("profile_id = ? AND route_id = ?", registration.ProfileID, registration.RouteID).
		Order("created_at asc").
		Find(&checkIns).Error
	if err != nil {
		return nil, err
	}

	var checkpoints []models.Checkpoint
	err = s.db.WithContext(ctx).
		Where("route_id = ?", registration.RouteID).
		Order("position asc").
		Find(&checkpoints).Error
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]time.Time{}
	summary := Summary{TotalCheckIns: len(checkIns), CheckpointsTotal: len(checkpoints)}
	for _, checkIn := range checkIns {
		if checkIn.IsValid != nil && !*checkIn.IsValid {
			continue
		}
		summary.ValidCheckIns++
		summary.PointsTotal += checkIn.Points
		if _, seen := visited[checkIn.CheckpointID]; !seen {
			visited[checkIn.CheckpointID] = checkIn.CreatedAt
		}
	}
	summary.CheckpointsVisited = len(visited)

	statuses := make([]CheckpointStatus, 0, len(checkpoints))
	for _, checkpoint := range checkpoints {
		status := CheckpointStatus{
			ID:       checkpoint.ID,
			Name:     checkpoint.Name,
			Lat:      checkpoint.Lat,
			Lng:      checkpoint.Lng,
			Points:   checkpoint.Points,
			Position: checkpoint.Position,
		}
		if at, ok := visited[checkpoint.ID]; ok {
			status.Visited = true
			visitedAt := at
			status.VisitedAt = &visitedAt
		}
		statuses = append(statuses, status)
	}

	trophies, trophyXP, err := s.trophies(ctx, registration.ProfileID, registration.RouteID)
	if err != nil {
		return nil, err
	}

	var levels []models.Level
	if err := s.db.WithContext(ctx).Order("xp_required asc").Find(&levels).Error; err != nil {
		return nil, err
	}

	return &UserStats{
		Registration:     &registration,
		CheckIns:         checkIns,
		RouteCheckpoints: statuses,
		Stats:            summary,
		Trophies:         trophies,
		XP: XPBlock{
			Global: Progress(registration.Profile.XP, levels),
			Route:  RouteXP{TotalXP: summary.PointsTotal + trophyXP},
		},
	}, nil
}

func (s *Service) trophies(ctx context.Context, profileID, routeID uuid.UUID) ([]TrophyView, int, error) {
	var rows []models.Trophy
	err := s.db.WithContext(ctx).
		Preload("TrophyType").
		Where("profile_id = ? AND route_id = ?", profileID, routeID).
		Order("earned_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	views := make([]TrophyView, 0, len(rows))
	totalXP := 0
	for _, trophy := range rows {
		view := TrophyView{
			ID:          trophy.ID,
			EarnedAt:    trophy.EarnedAt,
			Source:      trophy.Source,
			TypeCode:    trophy.TrophyType.Code,
			TypeName:    trophy.TrophyType.Name,
			TypeIcon:    trophy.TrophyType.Icon,
			TypeRarity:  trophy.TrophyType.Rarity,
			TypeXP:      trophy.TrophyType.XPReward,
			Description: trophy.TrophyType.Description,
		}
		if trophy.Metadata != "" {
			var metadata map[string]interface{}
			if err := json.Unmarshal([]byte(trophy.Metadata), &metadata); err == nil {
				view.Metadata = metadata
			}
		}
		views = append(views, view)
		totalXP += trophy.TrophyType.XPReward
	}
	return views, totalXP, nil
}

// Progress folds a total XP figure into the level table. levels must
// be ordered by xp_required ascending.
func Progress(totalXP int, levels []models.Level) XPProgress {
	progress := XPProgress{
		TotalXP: totalXP,
		Level:   1,
		Label:   "Novato",
	}

	currentRequired := 0
	nextRequired := -1
	for _, level := range levels {
		if level.XPRequired <= totalXP {
			progress.Level = level.Level
			progress.Label = level.Title
			currentRequired = level.XPRequired
		} else {
			nextRequired = level.XPRequired
			break
		}
	}
	if nextRequired < 0 {
		nextRequired = currentRequired + DefaultLevelStep
	}

	into := totalXP - currentRequired
	if into < 0 {
		into = 0
	}
	span := nextRequired - currentRequired
	if span < 1 {
		span = 1
	}

	progress.CurrentXP = into
	progress.NextXP = span
	progress.ProgressPct = math.Round(10000*float64(into)/float64(span)) / 100
	return progress
}
