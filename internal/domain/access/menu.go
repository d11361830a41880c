package access

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
)

// MenuRestriction is one denial entry on a menu, targeting either a user
// or a group
type MenuRestriction struct {
	ID      uuid.UUID  `gorm:"type:uuid;primary_key"`
	MenuID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID  *uuid.UUID `gorm:"type:uuid;index"`
	GroupID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (MenuRestriction) TableName() string {
	return "menu_restrictions"
}

// Menu is a navigation entry that can be hidden from specific users or
// groups. A menu without restrictions is visible to everyone; adding a
// user or group to the restriction list hides the menu from them.
type Menu struct {
	shared.CompanyAggregateRoot
	Code         string            `gorm:"type:varchar(100);not null;uniqueIndex:idx_menu_company_code,priority:2"`
	Name         string            `gorm:"type:varchar(200);not null"`
	ParentID     *uuid.UUID        `gorm:"type:uuid;index"`
	Sequence     int               `gorm:"not null;default:10"`
	Restrictions []MenuRestriction `gorm:"foreignKey:MenuID;references:ID"`
}

// TableName returns the table name for GORM
func (Menu) TableName() string {
	return "menus"
}

// NewMenu creates a menu entry
func NewMenu(companyID uuid.UUID, code, name string, parentID *uuid.UUID) (*Menu, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Menu code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Menu name cannot be empty")
	}
	return &Menu{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Code:                 code,
		Name:                 name,
		ParentID:             parentID,
		Sequence:             10,
		Restrictions:         make([]MenuRestriction, 0),
	}, nil
}

// RestrictUser hides the menu from a user
func (m *Menu) RestrictUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	for i := range m.Restrictions {
		if m.Restrictions[i].UserID != nil && *m.Restrictions[i].UserID == userID {
			return nil
		}
	}
	m.Restrictions = append(m.Restrictions, MenuRestriction{
		ID:     uuid.New(),
		MenuID: m.ID,
		UserID: &userID,
	})
	m.Touch()
	return nil
}

// RestrictGroup hides the menu from every member of a group
func (m *Menu) RestrictGroup(groupID uuid.UUID) error {
	if groupID == uuid.Nil {
		return shared.NewDomainError("INVALID_GROUP", "Group ID cannot be empty")
	}
	for i := range m.Restrictions {
		if m.Restrictions[i].GroupID != nil && *m.Restrictions[i].GroupID == groupID {
			return nil
		}
	}
	m.Restrictions = append(m.Restrictions, MenuRestriction{
		ID:      uuid.New(),
		MenuID:  m.ID,
		GroupID: &groupID,
	})
	m.Touch()
	return nil
}

// ClearRestriction removes a user or group from the restriction list
func (m *Menu) ClearRestriction(restrictionID uuid.UUID) error {
	for i := range m.Restrictions {
		if m.Restrictions[i].ID == restrictionID {
			m.Restrictions = append(m.Restrictions[:i], m.Restrictions[i+1:]...)
			m.Touch()
			return nil
		}
	}
	return shared.NewDomainError(shared.ErrNotFound.Code, "Menu restriction not found")
}

// VisibleTo reports whether a user with the given group memberships may
// see the menu
func (m *Menu) VisibleTo(userID uuid.UUID, groupIDs []uuid.UUID) bool {
	for i := range m.Restrictions {
		r := &m.Restrictions[i]
		if r.UserID != nil && *r.UserID == userID {
			return false
		}
		if r.GroupID != nil {
			for _, g := range groupIDs {
				if *r.GroupID == g {
					return false
				}
			}
		}
	}
	return true
}

// FilterVisible returns the menus a user may see, preserving input order
func FilterVisible(menus []Menu, userID uuid.UUID, groupIDs []uuid.UUID) []Menu {
	out := make([]Menu, 0, len(menus))
	for i := range menus {
		if menus[i].VisibleTo(userID, groupIDs) {
			out = append(out, menus[i])
		}
	}
	return out
}
