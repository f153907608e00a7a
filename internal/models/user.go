package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleEmployer Role = "employer"
	RoleTasker   Role = "tasker"
	RoleAdmin    Role = "admin"
)

// Capability predicates so handlers never compare raw role strings.
func (r Role) CanPostTasks() bool    { return r == RoleEmployer || r == RoleAdmin }
func (r Role) CanPerformTasks() bool { return r == RoleTasker }
func (r Role) IsAdmin() bool         { return r == RoleAdmin }

func (r Role) Valid() bool {
	return r == RoleEmployer || r == RoleTasker || r == RoleAdmin
}

// Place is the county > subCounty > village triple carried by users and tasks.
type Place struct {
	County    string `gorm:"not null" json:"county"`
	SubCounty string `gorm:"not null" json:"subCounty"`
	Village   string `gorm:"not null" json:"village"`
}

func (p Place) Complete() bool {
	return p.County != "" && p.SubCounty != "" && p.Village != ""
}

type EducationLevel string

const (
	EducationPrimary   EducationLevel = "primary"
	EducationSecondary EducationLevel = "secondary"
	EducationTertiary  EducationLevel = "college/university"
)

// Education is tasker-only profile data.
type Education struct {
	HighestLevel   EducationLevel `gorm:"type:varchar(30);default:'primary'" json:"highestLevel"`
	Specialization string         `json:"specialization"`
}

type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	PhoneNumber string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"phoneNumber"`
	NationalID  string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"nationalId"`
	Role        Role      `gorm:"type:varchar(20);not null;index" json:"role"`

	Password string `gorm:"not null" json:"-"`

	Location  Place     `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	Education Education `gorm:"embedded;embeddedPrefix:education_" json:"education"`

	Skills []Skill `gorm:"many2many:user_skills" json:"skills,omitempty"`

	Availability   bool   `gorm:"default:true" json:"availability"`
	ProfilePicture string `json:"profilePicture"`

	// Wallet balance in whole shillings. Mutated only through the wallet
	// service with balance = balance +/- expressions; the transactions table
	// is the ledger behind it.
	WalletBalance int64 `gorm:"not null;default:0" json:"walletBalance"`

	// Derived from reviews, recomputed on every review write.
	AverageRating float64 `gorm:"not null;default:0" json:"averageRating"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}
