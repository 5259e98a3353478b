package llm

import (
	"fmt"
	"strings"

	"github.com/schemedesk/district-kb/constants"
)

// ExtractionPromptRequest carries everything the extraction prompt embeds.
type ExtractionPromptRequest struct {
	DocumentText string
	DistrictName string
	UploadDate   string // YYYY-MM-DD
	Taxonomy     []constants.Sector
	ChunkNum     int // 1-based; meaningful when TotalChunks > 1
	TotalChunks  int
}

// BuildExtractionPrompt composes the deterministic extraction prompt: the
// fixed taxonomy, the target JSON shape, district, date and the chunk text.
// When the document was split, the prompt states which chunk this is and that
// only this chunk's content should be extracted.
func BuildExtractionPrompt(req ExtractionPromptRequest) string {
	var b strings.Builder

	b.WriteString("You are an AI model that extracts structured and factual information\n")
	b.WriteString("from government documents related to district development schemes.")

	if req.TotalChunks > 1 {
		fmt.Fprintf(&b, `

IMPORTANT: This is chunk %d of %d from a large document.
- Extract all relevant information from THIS chunk only.
- Focus on finding any sectors, sub-categories, and action_points mentioned in this portion of the document.
- The results from all chunks will be merged together, so extract everything you find in this chunk.`,
			req.ChunkNum, req.TotalChunks)
	}

	b.WriteString(`

CRITICAL EXTRACTION REQUIREMENTS:
1. ACTION NAMES: Use ONLY the exact predefined subcategory names listed below as action_name. DO NOT create custom action names.
2. COMPREHENSIVE EXTRACTION: Extract EVERY piece of information available in the document for each subcategory.
3. LOGICAL STATUS: For each action point, infer a logical current_status from the content (e.g., "In Progress", "Completed", "Pending", "On Track", "Delayed").
4. DATA FIDELITY: Only extract information explicitly present in the document; do not invent data.
5. NO DATA LOSS: Every number, percentage, status, date, target, achievement or note mentioned for a subcategory must be captured.

Analyze the document text and organize data according to this exact JSON schema:

`)
	fmt.Fprintf(&b, `{
  "district": %q,
  "upload_date": %q,
  "sectors": [
    {
      "sector_name": "<one of the predefined sectors>",
      "sub_categories": [
        {
          "sub_category_name": "<one of the predefined sub-categories>",
          "information": {
            "action_points": [
              {
                "action_name": "<EXACT sub-category name>",
                "current_status": "inferred status or null",
                "achievement_percentage": "number or null",
                "data_source": "text or null",
                "remarks": "text or null"
              }
            ],
            "additional_details": {
              "descriptive_key": "every other piece of extracted data"
            }
          }
        }
      ]
    }
  ]
}`, req.DistrictName, req.UploadDate)

	b.WriteString(`

Rules:
- For each subcategory create exactly ONE action point whose action_name is the EXACT subcategory name from the predefined list below.
- Put ALL extracted information beyond the action point fields into additional_details with descriptive keys (e.g., "total_beneficiaries", "coverage_percentage", "funds_allocated", "completion_date").
- Categorize content strictly into the predefined sectors and sub-categories listed below.
- Only include sectors and sub_categories that have relevant data in the document.`)
	fmt.Fprintf(&b, "\n- Ensure the district field is %q and upload_date is %q.", req.DistrictName, req.UploadDate)
	if req.TotalChunks > 1 {
		b.WriteString("\n- Extract ALL relevant information from this chunk, even if it seems incomplete. The chunks will be merged.")
	}

	b.WriteString("\n\nPredefined Sectors & Sub-Categories:\n")
	for _, sector := range req.Taxonomy {
		b.WriteString("\n")
		b.WriteString(sector.Name)
		b.WriteString("\n")
		for _, sub := range sector.SubCategories {
			b.WriteString("- ")
			b.WriteString(sub)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nDocument Text:\n")
	b.WriteString(req.DocumentText)
	b.WriteString("\n\nReturn ONLY valid JSON following the schema above. Do not include any explanatory text before or after the JSON.")

	return b.String()
}

// BuildChatPrompt composes the question-answering prompt over stored district
// knowledge. contextData is the formatted latest-rows context.
func BuildChatPrompt(question, contextData, districtName string) string {
	var b strings.Builder
	b.WriteString("You are an AI assistant helping users query information about government schemes in districts. ")
	b.WriteString("Answer questions based on the provided context data.\n\n")
	fmt.Fprintf(&b, "District: %s\n\n", districtName)
	fmt.Fprintf(&b, "Context Data (from database):\n%s\n\n", contextData)
	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	b.WriteString(`Instructions:
- Answer the question based only on the provided context data.
- If the context doesn't contain relevant information, politely state that.
- Be conversational and helpful.
- Include specific details, numbers, and facts from the context when available.
- Organize your response clearly with bullet points or short paragraphs as needed.

Provide a helpful and accurate response:`)
	return b.String()
}
