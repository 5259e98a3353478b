package constants

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sector is one top-level bucket of the fixed extraction taxonomy.
// Sub-category labels double as action point names: the model is instructed
// to emit exactly one action point per sub-category, named after it.
type Sector struct {
	Name          string   `yaml:"sector" json:"sector_name"`
	SubCategories []string `yaml:"sub_categories" json:"sub_categories"`
}

var defaultTaxonomy = []Sector{
	{
		Name: "Sashakt Labharthi: Saturation Of Flagship Schemes",
		SubCategories: []string{
			"Identification and Saturation of Beneficiaries",
			"Doorstep Delivery of Scheme Benefits",
		},
	},
	{
		Name: "Shikshit Arunachal: Education, Entrepreneurship & Employment",
		SubCategories: []string{
			"Rationalization of Student Enrolment and Teacher Distribution",
			"Inclusive Education and focus on Improving Learning Outcomes",
			"Improve pass percentage of students",
			"Action Points from Chintan Shivir & Consultative Meetings",
			"Skill Identification and Promotion of Skill Developmet Programs",
			"Monitor and support ITI and polytechnic graduates",
		},
	},
	{
		Name: "Swasth Arunachal: Health",
		SubCategories: []string{
			"Health Coverage under Ayushman Bharat and CMAAY",
			"Institutional Deliveries, Vaccinations and TB Notifications Rate",
			"One District One Health Theme",
			"Drug-Free Districts by 2029",
		},
	},
	{
		Name: "Unnat Krishi: Agriculture",
		SubCategories: []string{
			"Key interventions under Unnat Krishi initiative",
			"One District, One Product",
		},
	},
	{
		Name: "Sundar Arunachal: Tourism and Heritage",
		SubCategories: []string{
			"Tourism Development:One District, One Tourist Spot",
			"One District, One Cuisine Program",
		},
	},
	{
		Name: "Samriddh Arunachal: Good Governance",
		SubCategories: []string{
			"Bottom-Up Planning and Community Participation",
			"Connectivity of Unconnected Areas",
			"Northeast Region SDG Index",
			"Revenue Augmentation",
			"Inventor of Public Infrastructure and Master Plans for Towns",
			"Enhancing Quality of Life of Citizens and Improved Grievance Redressal",
			"Capacty Building of Government Servants",
			"Review of Suspension Cases and Disciplinary Proceedings",
		},
	},
	{
		Name: "Surakshit Arunachal: Security, Law & Order",
		SubCategories: []string{
			"Removal and Halt of Land Encroachments and creation of Land Banks",
		},
	},
	{
		Name: "Major Infrastructure Projects",
		SubCategories: []string{
			"Status of Long Pending Infrastructure Projects",
		},
	},
}

// DefaultTaxonomy returns the built-in sector/sub-category enumeration.
func DefaultTaxonomy() []Sector {
	out := make([]Sector, len(defaultTaxonomy))
	copy(out, defaultTaxonomy)
	return out
}

// LoadTaxonomy reads a sector list from a YAML file. An empty path returns
// the built-in taxonomy.
func LoadTaxonomy(path string) ([]Sector, error) {
	if path == "" {
		return DefaultTaxonomy(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}
	var sectors []Sector
	if err := yaml.Unmarshal(b, &sectors); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}
	if len(sectors) == 0 {
		return nil, fmt.Errorf("taxonomy file %s contains no sectors", path)
	}
	return sectors, nil
}

// SubCategoryNames flattens a taxonomy into the list of sub-category labels.
func SubCategoryNames(sectors []Sector) []string {
	var names []string
	for _, s := range sectors {
		names = append(names, s.SubCategories...)
	}
	return names
}
