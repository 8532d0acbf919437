package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Family is a household account. Students, ledger rows and change requests
// are all scoped to a family.
type Family struct {
	FamilyID        int64     `json:"familyid" gorm:"column:familyid;primaryKey;autoIncrement"`
	UserID          string    `json:"userid" gorm:"column:userid;index"`
	FatherFirstName string    `json:"fatherfirst" gorm:"column:fatherfirst"`
	FatherLastName  string    `json:"fatherlast" gorm:"column:fatherlast"`
	MotherFirstName string    `json:"motherfirst" gorm:"column:motherfirst"`
	MotherLastName  string    `json:"motherlast" gorm:"column:motherlast"`
	Email           string    `json:"email" gorm:"column:email"`
	Phone           string    `json:"phone" gorm:"column:phone"`
	Address         string    `json:"address" gorm:"column:address"`
	CreateDate      time.Time `json:"createddate" gorm:"column:createddate;autoCreateTime"`
}

func (Family) TableName() string { return "family" }

// Student is a child belonging to exactly one family.
type Student struct {
	StudentID   int64     `json:"studentid" gorm:"column:studentid;primaryKey;autoIncrement"`
	FamilyID    int64     `json:"familyid" gorm:"column:familyid;not null;index"`
	NameCn      string    `json:"namecn" gorm:"column:namecn"`
	NameFirstEn string    `json:"namefirsten" gorm:"column:namefirsten"`
	NameLastEn  string    `json:"namelasten" gorm:"column:namelasten"`
	DOB         time.Time `json:"dob" gorm:"column:dob"`
	Gender      string    `json:"gender" gorm:"column:gender"`
	Active      bool      `json:"active" gorm:"column:active;not null;default:true"`
	Upgradable  int       `json:"upgradable" gorm:"column:upgradable;not null;default:0"`
	CreateDate  time.Time `json:"createddate" gorm:"column:createddate;autoCreateTime"`
}

func (Student) TableName() string { return "student" }

// Season is one term of an academic cycle. A cycle is always three seasons:
// the year record plus its fall and spring halves, which point back at the
// year through BeginSeasonID.
type Season struct {
	SeasonID        int64        `json:"seasonid" gorm:"column:seasonid;primaryKey;autoIncrement"`
	SeasonNameEn    string       `json:"seasonnameen" gorm:"column:seasonnameen"`
	SeasonNameCn    string       `json:"seasonnamecn" gorm:"column:seasonnamecn"`
	IsSpring        bool         `json:"isspring" gorm:"column:isspring;not null;default:false"`
	BeginSeasonID   int64        `json:"beginseasonid" gorm:"column:beginseasonid;index"`
	RelatedSeasonID int64        `json:"relatedseasonid" gorm:"column:relatedseasonid"`
	StartDate       time.Time    `json:"startdate" gorm:"column:startdate"`
	EndDate         time.Time    `json:"enddate" gorm:"column:enddate"`
	EarlyRegDate    time.Time    `json:"earlyregdate" gorm:"column:earlyregdate"`
	NormalRegDate   time.Time    `json:"normalregdate" gorm:"column:normalregdate"`
	LateRegDate1    time.Time    `json:"lateregdate1" gorm:"column:lateregdate1"`
	LateRegDate2    time.Time    `json:"lateregdate2" gorm:"column:lateregdate2"`
	CloseRegDate    time.Time    `json:"closeregdate" gorm:"column:closeregdate"`
	CancelDeadline  time.Time    `json:"canceldeadline" gorm:"column:canceldeadline"`
	Status          SeasonStatus `json:"status" gorm:"column:status;not null;default:1"`
}

func (Season) TableName() string { return "seasons" }

// IsYear reports whether the season is the full-year record of its cycle.
func (s *Season) IsYear() bool {
	return s.BeginSeasonID == 0 || s.BeginSeasonID == s.SeasonID
}

// Arrangement is a class offered in a specific season.
type Arrangement struct {
	ArrangeID         int64           `json:"arrangeid" gorm:"column:arrangeid;primaryKey;autoIncrement"`
	SeasonID          int64           `json:"seasonid" gorm:"column:seasonid;not null;uniqueIndex:idx_arrangement_class_season"`
	ClassID           int64           `json:"classid" gorm:"column:classid;not null;uniqueIndex:idx_arrangement_class_season"`
	TeacherID         int64           `json:"teacherid" gorm:"column:teacherid"`
	RoomID            int64           `json:"roomid" gorm:"column:roomid"`
	TimeID            int64           `json:"timeid" gorm:"column:timeid"`
	SeatLimit         int             `json:"seatlimit" gorm:"column:seatlimit"`
	AgeLimit          int             `json:"agelimit" gorm:"column:agelimit"`
	TuitionW          decimal.Decimal `json:"tuitionW" gorm:"column:tuitionw;type:numeric(10,2);not null;default:0"`
	SpecialFeeW       decimal.Decimal `json:"specialfeeW" gorm:"column:specialfeew;type:numeric(10,2);not null;default:0"`
	TuitionH          decimal.Decimal `json:"tuitionH" gorm:"column:tuitionh;type:numeric(10,2);not null;default:0"`
	SpecialFeeH       decimal.Decimal `json:"specialfeeH" gorm:"column:specialfeeh;type:numeric(10,2);not null;default:0"`
	WaiveRegFee       bool            `json:"waiveregfee" gorm:"column:waiveregfee;not null;default:false"`
	RegStatus         int             `json:"regstatus" gorm:"column:regstatus;not null;default:1"`
	CloseRegistration bool            `json:"closeregistration" gorm:"column:closeregistration;not null;default:false"`
	Notes             string          `json:"notes" gorm:"column:notes"`
}

func (Arrangement) TableName() string { return "arrangement" }

// ClassRegistration is one enrollment attempt of a student in an arrangement.
type ClassRegistration struct {
	RegID            int64        `json:"regid" gorm:"column:regid;primaryKey;autoIncrement"`
	StudentID        int64        `json:"studentid" gorm:"column:studentid;not null;index"`
	ArrangeID        int64        `json:"arrangeid" gorm:"column:arrangeid;not null;index"`
	SeasonID         int64        `json:"seasonid" gorm:"column:seasonid;not null;index"`
	ClassID          int64        `json:"classid" gorm:"column:classid;not null"`
	FamilyID         int64        `json:"familyid" gorm:"column:familyid;not null;index"`
	StatusID         RegStatus    `json:"statusid" gorm:"column:statusid;not null"`
	PreviousStatusID RegStatus    `json:"previousstatusid" gorm:"column:previousstatusid;not null;default:0"`
	FamilyBalanceID  int64        `json:"familybalanceid" gorm:"column:familybalanceid;index"`
	ByAdmin          bool         `json:"byadmin" gorm:"column:byadmin;not null;default:false"`
	RegisterDate     time.Time    `json:"registerdate" gorm:"column:registerdate"`
	LastModify       time.Time    `json:"lastmodify" gorm:"column:lastmodify"`
	Notes            string       `json:"notes" gorm:"column:notes"`
	Arrangement      *Arrangement `json:"arrangement,omitempty" gorm:"foreignKey:ArrangeID;references:ArrangeID"`
}

func (ClassRegistration) TableName() string { return "classregistration" }

// IsActive reports whether the registration still holds a seat.
func (r *ClassRegistration) IsActive() bool {
	return r.StatusID == RegSubmitted || r.StatusID == RegRegistered
}

// FamilyBalance is a single ledger row, never a running total.
type FamilyBalance struct {
	BalanceID        int64           `json:"balanceid" gorm:"column:balanceid;primaryKey;autoIncrement"`
	AppliedID        int64           `json:"appliedid" gorm:"column:appliedid;not null;default:0;index"`
	AppliedRegID     int64           `json:"appliedregid" gorm:"column:appliedregid;not null;default:0"`
	FamilyID         int64           `json:"familyid" gorm:"column:familyid;not null;index:idx_balance_family_season"`
	SeasonID         int64           `json:"seasonid" gorm:"column:seasonid;not null;index:idx_balance_family_season"`
	YearClass        int             `json:"yearclass" gorm:"column:yearclass;not null;default:0"`
	SemesterClass    int             `json:"semesterclass" gorm:"column:semesterclass;not null;default:0"`
	ChildNum         int             `json:"childnum" gorm:"column:childnum;not null;default:0"`
	TypeID           BalanceType     `json:"typeid" gorm:"column:typeid;not null"`
	StatusID         BalanceStatus   `json:"statusid" gorm:"column:statusid;not null"`
	RegFee           decimal.Decimal `json:"regfee" gorm:"column:regfee;type:numeric(10,2);not null;default:0"`
	EarlyRegDiscount decimal.Decimal `json:"earlyregdiscount" gorm:"column:earlyregdiscount;type:numeric(10,2);not null;default:0"`
	LateRegFee       decimal.Decimal `json:"lateregfee" gorm:"column:lateregfee;type:numeric(10,2);not null;default:0"`
	Tuition          decimal.Decimal `json:"tuition" gorm:"column:tuition;type:numeric(10,2);not null;default:0"`
	TotalAmount      decimal.Decimal `json:"totalamount" gorm:"column:totalamount;type:numeric(10,2);not null;default:0"`
	CheckNo          string          `json:"checkno" gorm:"column:checkno"`
	PaidDate         *time.Time      `json:"paiddate,omitempty" gorm:"column:paiddate"`
	RegDate          time.Time       `json:"regdate" gorm:"column:regdate"`
	LastModify       time.Time       `json:"lastmodify" gorm:"column:lastmodify"`
	Notes            string          `json:"notes" gorm:"column:notes"`
}

func (FamilyBalance) TableName() string { return "familybalance" }

// Amounts returns the signed money fields of the row.
func (b *FamilyBalance) Amounts() Amounts {
	return Amounts{
		Tuition:          b.Tuition,
		RegFee:           b.RegFee,
		LateRegFee:       b.LateRegFee,
		EarlyRegDiscount: b.EarlyRegDiscount,
	}
}

// SetAmounts overwrites the money fields and recomputes TotalAmount.
func (b *FamilyBalance) SetAmounts(a Amounts) {
	b.Tuition = a.Tuition
	b.RegFee = a.RegFee
	b.LateRegFee = a.LateRegFee
	b.EarlyRegDiscount = a.EarlyRegDiscount
	b.TotalAmount = a.Total()
}

// RegChangeRequest is a parent-submitted drop or transfer request.
//
// While pending, ArrangeID names the transfer target (0 for a drop). Once a
// transfer is approved RegID points at the new registration and AppliedID at
// the one it replaced; an approved drop keeps AppliedID at 0.
type RegChangeRequest struct {
	RequestID      int64      `json:"requestid" gorm:"column:requestid;primaryKey;autoIncrement"`
	RegID          int64      `json:"regid" gorm:"column:regid;not null;index"`
	AppliedID      int64      `json:"appliedid" gorm:"column:appliedid;not null;default:0"`
	FamilyID       int64      `json:"familyid" gorm:"column:familyid;not null;index"`
	StudentID      int64      `json:"studentid" gorm:"column:studentid;not null"`
	SeasonID       int64      `json:"seasonid" gorm:"column:seasonid;not null"`
	ArrangeID      int64      `json:"arrangeid" gorm:"column:arrangeid;not null;default:0"`
	ReqStatusID    ReqStatus  `json:"reqstatusid" gorm:"column:reqstatusid;not null"`
	OriRegStatusID RegStatus  `json:"oriregstatusid" gorm:"column:oriregstatusid;not null;default:0"`
	RegStatusID    RegStatus  `json:"regstatusid" gorm:"column:regstatusid;not null;default:0"`
	NewBalanceID   int64      `json:"newbalanceid" gorm:"column:newbalanceid;not null;default:0"`
	Reason         string     `json:"reason" gorm:"column:reason"`
	AdminMemo      string     `json:"adminmemo" gorm:"column:adminmemo"`
	SubmitDate     time.Time  `json:"submitdate" gorm:"column:submitdate"`
	ProcessDate    *time.Time `json:"processdate,omitempty" gorm:"column:processdate"`
	LastModify     time.Time  `json:"lastmodify" gorm:"column:lastmodify"`
}

func (RegChangeRequest) TableName() string { return "regchangerequest" }

// IsTransfer reports whether the request moves the student into another
// arrangement rather than dropping the class.
func (r *RegChangeRequest) IsTransfer() bool {
	if r.ReqStatusID == ReqApproved {
		return r.AppliedID != 0
	}
	return r.ArrangeID != 0
}

// BalanceAudit records a direct ledger correction made by an administrator.
type BalanceAudit struct {
	AuditID   string         `json:"auditid" gorm:"column:auditid;primaryKey"`
	BalanceID int64          `json:"balanceid" gorm:"column:balanceid;not null;index"`
	FamilyID  int64          `json:"familyid" gorm:"column:familyid;not null"`
	Action    string         `json:"action" gorm:"column:action;not null"`
	Actor     string         `json:"actor" gorm:"column:actor"`
	Snapshot  datatypes.JSON `json:"snapshot" gorm:"column:snapshot"`
	CreatedAt time.Time      `json:"createdat" gorm:"column:createdat;autoCreateTime"`
}

func (BalanceAudit) TableName() string { return "balanceaudit" }

// AllModels lists every persisted type, in dependency order.
func AllModels() []any {
	return []any{
		&Family{},
		&Student{},
		&Season{},
		&Arrangement{},
		&FamilyBalance{},
		&ClassRegistration{},
		&RegChangeRequest{},
		&BalanceAudit{},
	}
}
