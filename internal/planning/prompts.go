package planning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planerhq/planer/internal/types"
)

const basePlanningPrompt = `
You are an expert software engineering project planner. Break down the given goal into comprehensive, actionable tasks.

GOAL: %s
CATEGORY: %s
DESCRIPTION: %s
ADDITIONAL CONTEXT: %s

Create a detailed task breakdown following these guidelines:
- Each task should be specific, measurable, and actionable
- Tasks should be ordered logically (dependencies considered)
- Set appropriate priorities (low, medium, high, critical)
- Consider potential dependencies between tasks
- Aim for 5-20 tasks depending on complexity

Respond with a JSON array of task objects, each containing:
- "title": Brief, clear task description
- "description": More detailed explanation if needed
- "priority": One of ["low", "medium", "high", "critical"]
- "dependencies": Array of task indices that must be completed first (0-based)

Focus on the specific planning approach for the %s category.
`

// jsonOnlyInstruction is appended to the planning prompt after a failed
// generation attempt to strengthen the output format requirement.
const jsonOnlyInstruction = "\n\nIMPORTANT: You MUST respond with ONLY a valid JSON array of task objects. No explanations, no markdown, just the JSON array."

// categoryGuidance gives the model per-category planning emphasis.
// Categories without an entry fall back to the base prompt alone.
var categoryGuidance = map[types.Category]string{
	types.CategoryProject: `
For SOFTWARE PROJECT planning, focus on:
- Requirements analysis and specification
- System architecture and design decisions
- Database schema and data modeling
- API design and endpoint planning
- Frontend component hierarchy
- Backend service architecture
- Authentication and authorization
- Testing strategy (unit, integration, e2e)
- Deployment and CI/CD setup
- Code review and quality gates
- Performance optimization points
- Documentation and API specs
- Security considerations
- Error handling and logging

Break down into phases: Planning, Design, Implementation, Testing, Deployment.
`,
	types.CategoryPersonal: `
For PERSONAL DEVELOPMENT planning, focus on:
- Clear, achievable milestones
- Skill acquisition and practice
- Small, manageable daily tasks
- Progress tracking mechanisms
- Celebration points
- Flexibility for life circumstances
- Balance and sustainability

Make tasks achievable and personally meaningful.
`,
	types.CategoryLearning: `
For LEARNING/SKILL DEVELOPMENT planning, focus on:
- Fundamentals before advanced concepts
- Hands-on coding exercises
- Building real projects
- Code review and best practices
- Reading documentation and source code
- Testing and debugging practice
- Performance and optimization
- Code organization and architecture
- Version control workflows
- Collaboration patterns

Structure learning through practical application and iteration.
`,
	types.CategoryBusiness: `
For BUSINESS/PRODUCT planning, focus on:
- Market research and validation
- MVP feature definition
- User stories and acceptance criteria
- Technical architecture decisions
- Scalability considerations
- Monitoring and analytics
- Go-to-market strategy
- Performance metrics and KPIs
- Iterative development cycles
- User feedback integration

Include strategic, tactical, and operational levels.
`,
	types.CategoryCreative: `
For CREATIVE/DESIGN planning, focus on:
- User research and personas
- Design system and components
- Wireframing and prototyping
- User experience flows
- Visual design and branding
- Accessibility considerations
- Responsive design
- Design-dev handoff
- Iterative feedback cycles
- Usability testing

Balance creativity with systematic execution.
`,
	types.CategoryResearch: `
For RESEARCH/INVESTIGATION planning, focus on:
- Problem statement definition
- Literature review and prior art
- Technology evaluation
- Proof of concept development
- Performance benchmarking
- Edge case analysis
- Documentation of findings
- Presentation preparation

Follow systematic research methodology.
`,
	types.CategoryMaintenance: `
For MAINTENANCE/REFACTORING planning, focus on:
- Code audit and technical debt assessment
- Dependency updates and security patches
- Performance profiling and optimization
- Test coverage improvement
- Documentation updates
- Refactoring priorities
- Breaking change migration
- Backward compatibility
- Deployment strategy
- Rollback procedures

Emphasize safety, testing, and gradual improvement.
`,
}

// PlanningPrompt builds the category-specific task generation prompt
func PlanningPrompt(goal string, category types.Category, description, additionalContext string) string {
	if description == "" {
		description = "No description provided."
	}
	if additionalContext == "" {
		additionalContext = "No additional context provided."
	}
	prompt := fmt.Sprintf(basePlanningPrompt, goal, category, description, additionalContext, category)
	return prompt + "\n" + categoryGuidance[category]
}

// AnalysisPrompt builds the sufficiency analysis prompt. The model is asked
// to judge whether the request carries enough information, and to produce
// specific clarification questions when it does not.
func AnalysisPrompt(title, goal string, category types.Category, description, additionalContext string) string {
	if description == "" {
		description = "Not provided"
	}
	if additionalContext == "" {
		additionalContext = "Not provided"
	}
	return fmt.Sprintf(`You are an expert project planner analyzing a planning request.

Title: %s
Goal: %s
Category: %s
Description: %s
Additional Context: %s

Analyze this request and determine:
1. Is there enough information to create a detailed, effective task breakdown?
2. What critical information is missing (if any)?

Respond in JSON format:
{
    "has_sufficient_info": true/false,
    "missing_info": ["list", "of", "missing", "items"] or [],
    "specific_questions": ["Question 1?", "Question 2?"] or [],
    "reasoning": "brief explanation"
}

Only request clarification if it's truly needed for creating an effective plan.`,
		title, goal, category, description, additionalContext)
}

// RegenerationPrompt builds the revision prompt from the original planning
// prompt, a snapshot of the current candidate tasks, and human feedback
func RegenerationPrompt(planningPrompt string, tasks []*types.Task, feedback string) string {
	snapshot := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		snapshot = append(snapshot, map[string]any{
			"title":       t.Title,
			"priority":    string(t.Priority),
			"description": t.Description,
		})
	}
	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		encoded = []byte("[]")
	}

	return fmt.Sprintf(`%s

Current tasks:
%s

User feedback for improvements:
%s

Please regenerate the task list incorporating this feedback.`,
		planningPrompt, encoded, feedback)
}

// ClarificationPrompt renders the numbered questions presented to the human
func ClarificationPrompt(title string, questions []string) string {
	var b strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return fmt.Sprintf(`To create an effective plan for '%s', please provide:

%s
Enter the information (or press Enter to proceed with best effort):`, title, b.String())
}

// PreviewPrompt renders the candidate plan confirmation request
func PreviewPrompt(preview string) string {
	return fmt.Sprintf(`Plan Preview:

%s

Does this plan look correct? You can:
- Type 'yes' to save this plan
- Type modifications needed to regenerate
- Type 'cancel' to abort

Your response:`, preview)
}
