package domain

// MergeCandidate folds freshly parsed data into an existing candidate.
// Scalar fields keep the existing value when it is non-empty; list fields are
// adopted only when the existing list is empty. The existing identity (ID,
// email, timestamps) always wins.
func MergeCandidate(existing, incoming Candidate) Candidate {
	out := existing

	out.FirstName = keepOr(existing.FirstName, incoming.FirstName)
	out.LastName = keepOr(existing.LastName, incoming.LastName)
	out.Phone = keepOr(existing.Phone, incoming.Phone)
	out.City = keepOr(existing.City, incoming.City)
	out.State = keepOr(existing.State, incoming.State)
	out.CurrentPosition = keepOr(existing.CurrentPosition, incoming.CurrentPosition)
	out.CurrentCompany = keepOr(existing.CurrentCompany, incoming.CurrentCompany)
	out.EducationLevel = keepOr(existing.EducationLevel, incoming.EducationLevel)
	out.Summary = keepOr(existing.Summary, incoming.Summary)

	if existing.YearsOfExperience == 0 {
		out.YearsOfExperience = incoming.YearsOfExperience
	}
	if len(existing.Skills) == 0 {
		out.Skills = incoming.Skills
	}
	if len(existing.SoftSkills) == 0 {
		out.SoftSkills = incoming.SoftSkills
	}
	if len(existing.Languages) == 0 {
		out.Languages = incoming.Languages
	}
	if len(existing.Certifications) == 0 {
		out.Certifications = incoming.Certifications
	}
	return out
}

func keepOr(existing, incoming string) string {
	if existing != "" {
		return existing
	}
	return incoming
}
