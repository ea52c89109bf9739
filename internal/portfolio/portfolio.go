// Package portfolio holds the static biographical data the assistant answers
// from and renders it into the prompt context block.
package portfolio

import (
	"errors"
	"fmt"
	"strings"
)

// Portfolio is the site owner's static profile.
type Portfolio struct {
	Name           string          `yaml:"name" toml:"name"`
	ShortName      string          `yaml:"short_name" toml:"short_name"`
	Pronoun        string          `yaml:"pronoun" toml:"pronoun"`
	Headline       string          `yaml:"headline" toml:"headline"`
	Summary        string          `yaml:"summary" toml:"summary"`
	Contact        Contact         `yaml:"contact" toml:"contact"`
	Education      []Education     `yaml:"education" toml:"education"`
	Skills         []SkillGroup    `yaml:"skills" toml:"skills"`
	Experience     []Experience    `yaml:"experience" toml:"experience"`
	Projects       []Project       `yaml:"projects" toml:"projects"`
	Certifications []Certification `yaml:"certifications" toml:"certifications"`
}

// Contact lists the public contact channels.
type Contact struct {
	Email    string `yaml:"email" toml:"email"`
	LinkedIn string `yaml:"linkedin" toml:"linkedin"`
	GitHub   string `yaml:"github" toml:"github"`
	Website  string `yaml:"website" toml:"website"`
}

// Education is one degree.
type Education struct {
	Degree      string `yaml:"degree" toml:"degree"`
	Institution string `yaml:"institution" toml:"institution"`
	Current     bool   `yaml:"current" toml:"current"`
}

// SkillGroup is a named list of skills.
type SkillGroup struct {
	Category string   `yaml:"category" toml:"category"`
	Items    []string `yaml:"items" toml:"items"`
}

// Experience is one role.
type Experience struct {
	Role         string   `yaml:"role" toml:"role"`
	Company      string   `yaml:"company" toml:"company"`
	Location     string   `yaml:"location" toml:"location"`
	Period       string   `yaml:"period" toml:"period"`
	Description  string   `yaml:"description" toml:"description"`
	Technologies []string `yaml:"technologies" toml:"technologies"`
}

// Project is one featured project.
type Project struct {
	Title        string   `yaml:"title" toml:"title"`
	Description  string   `yaml:"description" toml:"description"`
	Technologies []string `yaml:"technologies" toml:"technologies"`
	URL          string   `yaml:"url" toml:"url"`
}

// Certification is one license or certificate.
type Certification struct {
	Name     string `yaml:"name" toml:"name"`
	Issuer   string `yaml:"issuer" toml:"issuer"`
	Issued   string `yaml:"issued" toml:"issued"`
	Category string `yaml:"category" toml:"category"`
}

// Validate checks the profile has enough content to ground answers.
func (p *Portfolio) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("portfolio name cannot be empty")
	}
	if p.Summary == "" && len(p.Skills) == 0 && len(p.Experience) == 0 && len(p.Projects) == 0 {
		return errors.New("portfolio has no content")
	}
	return nil
}

// Subject returns the name the assistant uses for the owner.
func (p *Portfolio) Subject() string {
	if p.ShortName != "" {
		return p.ShortName
	}
	if first, _, ok := strings.Cut(p.Name, " "); ok {
		return first
	}
	return p.Name
}

// ThirdPerson returns the pronoun the assistant must use, defaulting to "they".
func (p *Portfolio) ThirdPerson() string {
	if p.Pronoun == "" {
		return "they"
	}
	return p.Pronoun
}

// Greeting is the synthetic first assistant message of every chat.
func (p *Portfolio) Greeting() string {
	return fmt.Sprintf("Hi! I'm %s's AI assistant. Ask me anything!", p.Subject())
}

// ContactLines renders the contact block used by the disclosure rules.
func (p *Portfolio) ContactLines() string {
	var b strings.Builder
	writeField(&b, "- Email: ", p.Contact.Email)
	writeField(&b, "- LinkedIn: ", p.Contact.LinkedIn)
	writeField(&b, "- GitHub: ", p.Contact.GitHub)
	writeField(&b, "- Portfolio Website: ", p.Contact.Website)
	return strings.TrimRight(b.String(), "\n")
}

// Context renders the immutable context block prefixed to every prompt.
func (p *Portfolio) Context() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Name: %s\n", p.Name)
	writeField(&b, "Headline: ", p.Headline)
	writeField(&b, "Summary: ", p.Summary)

	if len(p.Skills) > 0 {
		b.WriteString("\nSkills:\n")
		for _, g := range p.Skills {
			fmt.Fprintf(&b, "- %s: %s\n", g.Category, strings.Join(g.Items, ", "))
		}
	}

	if len(p.Experience) > 0 {
		b.WriteString("\nProfessional Experience:\n")
		for _, e := range p.Experience {
			fmt.Fprintf(&b, "- %s at %s", e.Role, e.Company)
			if e.Location != "" {
				fmt.Fprintf(&b, " (%s)", e.Location)
			}
			if e.Period != "" {
				fmt.Fprintf(&b, ", %s", e.Period)
			}
			b.WriteString("\n")
			writeField(&b, "  ", e.Description)
			if len(e.Technologies) > 0 {
				fmt.Fprintf(&b, "  Technologies: %s\n", strings.Join(e.Technologies, ", "))
			}
		}
	}

	if len(p.Projects) > 0 {
		b.WriteString("\nProjects:\n")
		for _, pr := range p.Projects {
			fmt.Fprintf(&b, "- %s: %s\n", pr.Title, pr.Description)
			if len(pr.Technologies) > 0 {
				fmt.Fprintf(&b, "  Technologies: %s\n", strings.Join(pr.Technologies, ", "))
			}
			writeField(&b, "  Link: ", pr.URL)
		}
	}

	if len(p.Education) > 0 {
		b.WriteString("\nEducation:\n")
		for _, e := range p.Education {
			fmt.Fprintf(&b, "- %s, %s", e.Degree, e.Institution)
			if e.Current {
				b.WriteString(" (in progress)")
			}
			b.WriteString("\n")
		}
	}

	if len(p.Certifications) > 0 {
		b.WriteString("\nCertifications:\n")
		for _, c := range p.Certifications {
			fmt.Fprintf(&b, "- %s, %s", c.Name, c.Issuer)
			if c.Issued != "" {
				fmt.Fprintf(&b, " (%s)", c.Issued)
			}
			b.WriteString("\n")
		}
	}

	if contact := p.ContactLines(); contact != "" {
		fmt.Fprintf(&b, "\n%s's Contact Information:\n%s\n", p.Subject(), contact)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, prefix, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	b.WriteString(prefix)
	b.WriteString(value)
	b.WriteString("\n")
}
