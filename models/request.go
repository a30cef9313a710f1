package models

// CreateCaseRequest is the body accepted by POST /api/casos
type CreateCaseRequest struct {
	Victim    VictimRequest     `json:"victim"`
	Incident  IncidentRequest   `json:"incident"`
	Accused   []AccusedRequest  `json:"accused,omitempty"`
	FollowUp  *FollowUpRequest  `json:"followUp,omitempty"`
	Resources []ResourceRequest `json:"resources,omitempty"`
}

// VictimRequest is the victim part of the simple API routes
type VictimRequest struct {
	Name       string `json:"name"`
	Surname    string `json:"surname,omitempty"`
	BirthDate  string `json:"birthDate,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	Profession string `json:"profession,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// IncidentRequest is the incident part of the simple API routes
type IncidentRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
	Province string `json:"province,omitempty"`
	Summary  string `json:"summary,omitempty"`
	Type     string `json:"type,omitempty"`
	Status   string `json:"status,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// AccusedRequest is an accused person sent with POST /api/casos
type AccusedRequest struct {
	Name    string `json:"name"`
	Alias   string `json:"alias,omitempty"`
	Status  string `json:"status,omitempty"`
	Court   string `json:"court,omitempty"`
	Charges string `json:"charges,omitempty"`
}

// FollowUpRequest is the follow-up sent with POST /api/casos
type FollowUpRequest struct {
	AssignedMember string        `json:"assignedMember,omitempty"`
	FamilyContact  FamilyContact `json:"familyContact,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// ResourceRequest is a link resource sent with POST /api/casos
type ResourceRequest struct {
	Type        string `json:"type,omitempty"`
	Title       string `json:"title"`
	URL         string `json:"url,omitempty"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

// ToVictim maps the request onto the stored victim shape
func (v VictimRequest) ToVictim() Victim {
	return Victim{
		FullName:   trimSpace(v.Name),
		Surname:    trimSpace(v.Surname),
		BirthDate:  v.BirthDate,
		Phone:      v.Phone,
		Email:      v.Email,
		Address:    v.Address,
		Profession: v.Profession,
		Notes:      v.Notes,
	}
}

// ToIncident maps the request onto the stored incident shape
func (i IncidentRequest) ToIncident() Incident {
	return Incident{
		Date:      trimSpace(i.Date),
		Time:      i.Time,
		Location:  i.Location,
		Province:  i.Province,
		Summary:   i.Summary,
		CrimeType: i.Type,
		Status:    i.Status,
		Notes:     i.Notes,
	}
}
