package api

// Disclosure is the legal notice shown next to every scorecard.
type Disclosure struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

var aiDisclosure = Disclosure{
	Title: "AI Disclosure & Legal Notice",
	Text: "This service is powered by Artificial Intelligence (AI). AI-generated insights and " +
		"recommendations can contain errors, hallucinations, or inaccuracies. Lightspeed Commerce Inc. " +
		"and its affiliates are not responsible for the accuracy or outcomes of the recommendations " +
		"provided. Users must conduct comprehensive independent due diligence, professional " +
		"consultation, and operational testing before implementing any advice or menu changes " +
		"generated by this tool.",
}
