package community

import "time"

// Estate is a residential community grouping residents, events, posts and projects.
type Estate struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;size:120;not null;uniqueIndex"`
	Address     *string   `gorm:"column:address;size:200"`
	Description *string   `gorm:"column:description;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Estate) TableName() string {
	return "estates"
}

// User is a community member. PasswordHash holds a bcrypt digest and is never rendered.
type User struct {
	ID           uint      `gorm:"column:id;primaryKey"`
	Username     string    `gorm:"column:username;size:64;not null;uniqueIndex"`
	Email        string    `gorm:"column:email;size:120;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password_hash;size:128;not null"`
	FullName     *string   `gorm:"column:full_name;size:120"`
	Phone        *string   `gorm:"column:phone;size:20"`
	EstateID     *uint     `gorm:"column:estate_id;index"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`

	Estate *Estate `gorm:"foreignKey:EstateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// Event is a dated community gathering with a set of attending users.
type Event struct {
	ID          uint      `gorm:"column:id;primaryKey"`
	Name        string    `gorm:"column:name;size:120;not null"`
	Description *string   `gorm:"column:description;type:text"`
	Date        time.Time `gorm:"column:date;not null"`
	Location    *string   `gorm:"column:location;size:200"`
	EstateID    *uint     `gorm:"column:estate_id;index"`
	CreatorID   uint      `gorm:"column:creator_id;not null;index"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`

	Estate  *Estate `gorm:"foreignKey:EstateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Creator *User   `gorm:"foreignKey:CreatorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (Event) TableName() string {
	return "events"
}

// Post is a message published by a user, optionally scoped to an estate.
type Post struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Title     string    `gorm:"column:title;size:120;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	AuthorID  uint      `gorm:"column:author_id;not null;index"`
	EstateID  *uint     `gorm:"column:estate_id;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`

	Author *User   `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Estate *Estate `gorm:"foreignKey:EstateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (Post) TableName() string {
	return "posts"
}

// Comment is a reply to a post.
type Comment struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Content   string    `gorm:"column:content;type:text;not null"`
	AuthorID  uint      `gorm:"column:author_id;not null;index"`
	PostID    uint      `gorm:"column:post_id;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`

	Author *User `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Post   *Post `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "comments"
}

// Project is a community initiative. State is true while the project is active.
type Project struct {
	ID            uint      `gorm:"column:id;primaryKey"`
	ProjectName   string    `gorm:"column:project_name;size:120;not null"`
	Description   *string   `gorm:"column:description;type:text"`
	EstateID      *uint     `gorm:"column:estate_id;index"`
	CreatorID     uint      `gorm:"column:creator_id;not null;index"`
	State         bool      `gorm:"column:state;not null"`
	CostEstimates *float64  `gorm:"column:cost_estimates"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`

	Estate  *Estate `gorm:"foreignKey:EstateID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Creator *User   `gorm:"foreignKey:CreatorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (Project) TableName() string {
	return "projects"
}

// EventAttendee records one user attending one event.
type EventAttendee struct {
	UserID  uint `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	EventID uint `gorm:"column:event_id;primaryKey;autoIncrement:false;index"`

	User  *User  `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Event *Event `gorm:"foreignKey:EventID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (EventAttendee) TableName() string {
	return "event_attendees"
}

// ProjectContributor records one user contributing to one project.
type ProjectContributor struct {
	UserID    uint `gorm:"column:user_id;primaryKey;autoIncrement:false"`
	ProjectID uint `gorm:"column:project_id;primaryKey;autoIncrement:false;index"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName provides the explicit table binding for GORM.
func (ProjectContributor) TableName() string {
	return "project_contributors"
}

// Models lists every persisted type in dependency order for schema migration.
func Models() []any {
	return []any{
		&Estate{},
		&User{},
		&Event{},
		&Post{},
		&Comment{},
		&Project{},
		&EventAttendee{},
		&ProjectContributor{},
	}
}
