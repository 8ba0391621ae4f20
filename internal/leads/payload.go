package leads

// Payload is the lead sent to every sink. Phone includes the country code.
type Payload struct {
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Company        string `json:"company"`
	BusinessType   string `json:"businessType"`
	Revenue        string `json:"revenue"`
	OverallScore   int    `json:"overallScore"`
	ResultsSummary string `json:"resultsSummary"`
	Timestamp      string `json:"timestamp"`
}
