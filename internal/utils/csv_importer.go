package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pulsefit/retention-backend/internal/models"
	"github.com/pulsefit/retention-backend/internal/repositories"
	"golang.org/x/exp/slog"
)

// ImportResult counts what a member import did
type ImportResult struct {
	TotalRows      int      `json:"totalRows"`
	MembersCreated int      `json:"membersCreated"`
	MembersUpdated int      `json:"membersUpdated"`
	Errors         []string `json:"errors"`
}

// MemberImporter loads members from a CSV export, upserting by email
type MemberImporter struct {
	memberRepo repositories.MemberRepository
	now        func() time.Time
}

// NewMemberImporter creates a new MemberImporter
func NewMemberImporter(memberRepo repositories.MemberRepository) *MemberImporter {
	return &MemberImporter{memberRepo: memberRepo, now: time.Now}
}

type memberColumns struct {
	email, firstName, lastName, membershipType, phone, joinDate, lastVisit, points int
}

// Import reads a header row followed by one member per row. Only the email column is
// required; rows that fail are reported in the result and skipped.
func (i *MemberImporter) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := memberColumns{
		email:          findColumnIndex(header, []string{"email", "Email Address", "E-mail"}),
		firstName:      findColumnIndex(header, []string{"firstName", "First Name", "first_name"}),
		lastName:       findColumnIndex(header, []string{"lastName", "Last Name", "last_name"}),
		membershipType: findColumnIndex(header, []string{"membershipType", "Membership", "Plan"}),
		phone:          findColumnIndex(header, []string{"phone", "Phone Number", "Mobile"}),
		joinDate:       findColumnIndex(header, []string{"joinDate", "Join Date", "Joined"}),
		lastVisit:      findColumnIndex(header, []string{"lastVisit", "Last Visit", "Last Check-In"}),
		points:         findColumnIndex(header, []string{"loyaltyPoints", "Points", "Loyalty Points"}),
	}
	if cols.email == -1 {
		return nil, errors.New("email column not found in CSV")
	}

	result := &ImportResult{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		member, err := parseMemberRow(row, cols, i.now())
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}

		created, err := i.upsert(ctx, member)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if created {
			result.MembersCreated++
		} else {
			result.MembersUpdated++
		}
	}

	slog.Info("Member import finished", "rows", result.TotalRows, "created", result.MembersCreated, "updated", result.MembersUpdated, "errors", len(result.Errors))
	return result, nil
}

// upsert keeps the existing account's id, role and password; profile fields come from the row
func (i *MemberImporter) upsert(ctx context.Context, member *models.Member) (bool, error) {
	existing, err := i.memberRepo.FindByEmail(ctx, member.Email)
	if errors.Is(err, repositories.ErrNotFound) {
		if err := i.memberRepo.Create(ctx, member); err != nil {
			return false, fmt.Errorf("failed to create member: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up member: %w", err)
	}

	existing.FirstName = member.FirstName
	existing.LastName = member.LastName
	existing.MembershipType = member.MembershipType
	existing.LoyaltyPoints = member.LoyaltyPoints
	if member.Phone != "" {
		existing.Phone = member.Phone
	}
	existing.JoinDate = member.JoinDate
	if member.LastVisit != nil && (existing.LastVisit == nil || member.LastVisit.After(*existing.LastVisit)) {
		existing.LastVisit = member.LastVisit
	}
	if err := i.memberRepo.Update(ctx, existing); err != nil {
		return false, fmt.Errorf("failed to update member: %w", err)
	}
	return false, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseMemberRow(row []string, cols memberColumns, now time.Time) (*models.Member, error) {
	email := strings.ToLower(cell(row, cols.email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	member := &models.Member{
		Email:          email,
		FirstName:      cell(row, cols.firstName),
		LastName:       cell(row, cols.lastName),
		Phone:          cell(row, cols.phone),
		Role:           models.RoleMember,
		MembershipType: strings.ToLower(cell(row, cols.membershipType)),
		JoinDate:       now,
	}
	if member.MembershipType == "" {
		member.MembershipType = models.MembershipBasic
	}
	if !models.IsValidMembershipType(member.MembershipType) {
		return nil, fmt.Errorf("unknown membership type %q", member.MembershipType)
	}

	if raw := cell(row, cols.joinDate); raw != "" {
		joined, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		member.JoinDate = joined
	}
	if raw := cell(row, cols.lastVisit); raw != "" {
		visited, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		member.LastVisit = &visited
	}
	if raw := cell(row, cols.points); raw != "" {
		points, err := strconv.Atoi(raw)
		if err != nil || points < 0 {
			return nil, fmt.Errorf("invalid loyalty points %q", raw)
		}
		member.LoyaltyPoints = points
	}
	return member, nil
}

func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// parseDate accepts the formats common in gym management exports, all as UTC
func parseDate(raw string) (time.Time, error) {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", raw)
}
