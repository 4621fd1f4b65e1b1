package model

import "time"

// CodePair is a [displayName, code] entry from one of the robot-model code
// catalogs. It marshals as a two-element JSON array.
type CodePair [2]string

// Label returns the display name.
func (p CodePair) Label() string { return p[0] }

// Code returns the machine code.
func (p CodePair) Code() string { return p[1] }

// CatalogEntry is the common shape of actions, expressions, extended actions
// and skills as listed by the API.
type CatalogEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	RobotModelID string `json:"robotModelId"`
}

// Pair converts the entry to the dropdown pair used by block generation.
func (e CatalogEntry) Pair() CodePair {
	return CodePair{e.Name, e.Code}
}

// RobotModel is a robot hardware model.
type RobotModel struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
}

// Robot is a physical robot registered to an account.
type Robot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber"`
	RobotModelID string `json:"robotModelId"`
	AccountID    string `json:"accountId,omitempty"`
}

// APK is an Android build published for robots.
type APK struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	URL         string    `json:"url"`
	CreatedDate time.Time `json:"createdDate"`
}

// Course is a catalog course.
type Course struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"imageUrl,omitempty"`
}

// Addon is a purchasable add-on.
type Addon struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
}

// Subscription is an account subscription record.
type Subscription struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	PlanName  string    `json:"planName"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Dance is a choreographed routine.
type Dance struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	Duration     int    `json:"duration"`
	RobotModelID string `json:"robotModelId"`
}

// OsmoCard is a printed programming card.
type OsmoCard struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// CatalogInfo describes one cached catalog.
type CatalogInfo struct {
	ModelID   string    `json:"modelId"`
	Kind      string    `json:"kind"`
	Count     int       `json:"count"`
	FetchedAt time.Time `json:"fetchedAt"`
}
