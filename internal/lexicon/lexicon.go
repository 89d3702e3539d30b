// Package lexicon holds the keyword lists and text templates the enrichment
// stages match against. One Lexicon is built at startup and passed by
// reference to every scorer and classifier.
package lexicon

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"aidigest/internal/core"
)

// TopicRule maps a topic label to the keywords that trigger it. Rules are
// evaluated in order and the first match wins.
type TopicRule struct {
	Topic    string   `yaml:"topic"`
	Keywords []string `yaml:"keywords"`
}

// ImpactTemplate is the fixed "what it means" text for one topic.
type ImpactTemplate struct {
	General string `yaml:"general"`
	SMB     string `yaml:"smb"`
}

// PainSignal ties a group of keywords to an SMB impact statement.
type PainSignal struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	SMBImpact string   `yaml:"smb_impact"`
}

// SuggestionRule appends its suggestions when any keyword matches.
// Suggestions may contain the {title} and {topic} placeholders.
type SuggestionRule struct {
	Keywords    []string `yaml:"keywords"`
	Suggestions []string `yaml:"suggestions"`
}

// Lexicon is the consolidated keyword and template configuration.
type Lexicon struct {
	AIKeywords          []string                  `yaml:"ai_keywords"`
	SMBKeywords         []string                  `yaml:"smb_keywords"`
	ViralKeywords       []string                  `yaml:"viral_keywords"`
	TopicRules          []TopicRule               `yaml:"topic_rules"`
	DefaultTopic        string                    `yaml:"default_topic"`
	ImpactTemplates     map[string]ImpactTemplate `yaml:"impact_templates"`
	PainSignals         []PainSignal              `yaml:"pain_signals"`
	SuggestionRules     []SuggestionRule          `yaml:"suggestion_rules"`
	FallbackSuggestions []string                  `yaml:"fallback_suggestions"`
	ViralThreshold      int                       `yaml:"viral_threshold"`
	MaxSuggestions      int                       `yaml:"max_suggestions"`
	TitleExcerptRunes   int                       `yaml:"title_excerpt_runes"`
}

var (
	defaultLexicon *Lexicon
	defaultOnce    sync.Once
)

// Default returns the built-in lexicon. The returned value is shared and
// must not be modified; use Clone for a private copy.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		defaultLexicon = builtin()
	})
	return defaultLexicon
}

// Load reads a YAML override file. Keys present in the file replace the
// corresponding built-in value; absent keys keep the built-in default.
func Load(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}
	return Parse(data)
}

// Parse applies YAML overrides on top of the built-in lexicon.
func Parse(data []byte) (*Lexicon, error) {
	lex := Default().Clone()
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	lex.lowercase()
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return lex, nil
}

// Validate checks that the lexicon can drive every enrichment stage.
func (l *Lexicon) Validate() error {
	var errs []string

	if len(l.AIKeywords) == 0 {
		errs = append(errs, "ai_keywords must not be empty")
	}
	if l.DefaultTopic == "" {
		errs = append(errs, "default_topic must be set")
	} else if _, ok := l.ImpactTemplates[l.DefaultTopic]; !ok {
		errs = append(errs, fmt.Sprintf("impact_templates is missing the default topic %q", l.DefaultTopic))
	}
	for i, rule := range l.TopicRules {
		if rule.Topic == "" || len(rule.Keywords) == 0 {
			errs = append(errs, fmt.Sprintf("topic_rules[%d] needs a topic and keywords", i))
		}
	}
	if l.ViralThreshold < 0 {
		errs = append(errs, "viral_threshold must not be negative")
	}
	if l.MaxSuggestions < 1 {
		errs = append(errs, "max_suggestions must be at least 1")
	}
	if l.TitleExcerptRunes < 1 {
		errs = append(errs, "title_excerpt_runes must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid lexicon:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Clone returns a deep copy.
func (l *Lexicon) Clone() *Lexicon {
	c := *l
	c.AIKeywords = cloneStrings(l.AIKeywords)
	c.SMBKeywords = cloneStrings(l.SMBKeywords)
	c.ViralKeywords = cloneStrings(l.ViralKeywords)
	c.FallbackSuggestions = cloneStrings(l.FallbackSuggestions)

	c.TopicRules = make([]TopicRule, len(l.TopicRules))
	for i, r := range l.TopicRules {
		c.TopicRules[i] = TopicRule{Topic: r.Topic, Keywords: cloneStrings(r.Keywords)}
	}
	c.ImpactTemplates = make(map[string]ImpactTemplate, len(l.ImpactTemplates))
	for k, v := range l.ImpactTemplates {
		c.ImpactTemplates[k] = v
	}
	c.PainSignals = make([]PainSignal, len(l.PainSignals))
	for i, p := range l.PainSignals {
		c.PainSignals[i] = PainSignal{Name: p.Name, Keywords: cloneStrings(p.Keywords), SMBImpact: p.SMBImpact}
	}
	c.SuggestionRules = make([]SuggestionRule, len(l.SuggestionRules))
	for i, r := range l.SuggestionRules {
		c.SuggestionRules[i] = SuggestionRule{Keywords: cloneStrings(r.Keywords), Suggestions: cloneStrings(r.Suggestions)}
	}
	return &c
}

// Template returns the impact template for topic, falling back to the
// default topic's template.
func (l *Lexicon) Template(topic string) ImpactTemplate {
	if t, ok := l.ImpactTemplates[topic]; ok {
		return t
	}
	return l.ImpactTemplates[l.DefaultTopic]
}

// ContainsAny reports whether text contains any of keywords as a substring.
// text is expected to be lowercased already.
func ContainsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Matches returns the keywords found in text, in list order.
func Matches(text string, keywords []string) []string {
	var hits []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}

// keywords are matched against lowercased text, so overrides are folded too.
func (l *Lexicon) lowercase() {
	lowerAll(l.AIKeywords)
	lowerAll(l.SMBKeywords)
	lowerAll(l.ViralKeywords)
	for i := range l.TopicRules {
		lowerAll(l.TopicRules[i].Keywords)
	}
	for i := range l.PainSignals {
		lowerAll(l.PainSignals[i].Keywords)
	}
	for i := range l.SuggestionRules {
		lowerAll(l.SuggestionRules[i].Keywords)
	}
}

func lowerAll(s []string) {
	for i := range s {
		s[i] = strings.ToLower(s[i])
	}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func builtin() *Lexicon {
	return &Lexicon{
		AIKeywords: []string{
			"ai", "artificial intelligence", "machine learning", "deep learning",
			"chatgpt", "gpt", "openai", "anthropic", "claude", "gemini", "llm",
			"large language model", "neural network", "generative ai", "gen ai",
			"copilot", "automation", "agent", "agentic", "model", "transformer",
			"nvidia", "gpu", "training", "inference", "prompt", "rag",
			"small business", "smb", "enterprise", "startup",
		},
		SMBKeywords: []string{
			"small business", "smb", "startup", "entrepreneur", "roi",
			"productivity", "automation", "workflow", "tool", "app",
			"affordable", "free", "pricing", "cost", "budget",
		},
		ViralKeywords: []string{
			"breakthrough", "shocking", "disrupting", "revolutionary", "game-changing",
			"billion", "millions of users", "viral", "banned", "leaked", "controversy",
			"replaced", "eliminated", "threatens", "surpasses", "dominates", "record",
			"unprecedented", "first ever", "massive", "exploding", "everyone",
			"jobs", "layoffs", "regulation", "safety", "risk", "danger",
			"open source", "free", "agi", "singularity", "sentient",
		},
		TopicRules: []TopicRule{
			{Topic: core.TopicFunding, Keywords: []string{"funding", "raise", "valuation", "invest", "billion", "million"}},
			{Topic: core.TopicProduct, Keywords: []string{"launch", "release", "announce", "new feature", "update"}},
			{Topic: core.TopicResearch, Keywords: []string{"research", "study", "paper", "breakthrough"}},
			{Topic: core.TopicPolicy, Keywords: []string{"regulation", "law", "policy", "government", "eu", "congress"}},
			{Topic: core.TopicBigTech, Keywords: []string{"openai", "anthropic", "google", "microsoft", "meta", "nvidia"}},
			{Topic: core.TopicSMB, Keywords: []string{"small business", "smb", "startup", "entrepreneur"}},
		},
		DefaultTopic: core.TopicGeneral,
		ImpactTemplates: map[string]ImpactTemplate{
			core.TopicBigTech: {
				General: "Major tech companies are shaping the AI landscape, influencing product ecosystems, competitive dynamics, and the pace of innovation across the industry.",
				SMB:     "Big tech AI moves often trickle down as new tools, APIs, and platform features that SMBs can leverage. Watch for new capabilities becoming available at lower price points.",
			},
			core.TopicFunding: {
				General: "Investment activity signals where the market sees growth potential and which AI capabilities are maturing toward commercial viability.",
				SMB:     "Funded startups often launch affordable or freemium AI tools targeting underserved markets. New entrants can mean more choices and competitive pricing for small businesses.",
			},
			core.TopicProduct: {
				General: "New AI product launches and updates expand what's possible with current technology and may shift user expectations across the market.",
				SMB:     "New product releases often include SMB-friendly tiers. Evaluate whether these tools can automate manual processes or improve customer experience in your business.",
			},
			core.TopicResearch: {
				General: "Research breakthroughs lay the groundwork for next-generation AI capabilities that will eventually reach commercial products.",
				SMB:     "While research may seem distant, breakthroughs often become accessible tools within 12-18 months. Stay aware to plan ahead for adoption opportunities.",
			},
			core.TopicPolicy: {
				General: "Regulatory developments will define how AI can be deployed, affecting compliance requirements and market access for all organizations.",
				SMB:     "New regulations can create compliance burdens but also level the playing field. SMBs should monitor requirements that may affect their AI tool usage or data handling.",
			},
			core.TopicSMB: {
				General: "AI solutions specifically targeting smaller organizations are making advanced capabilities accessible without enterprise budgets.",
				SMB:     "These developments are directly relevant to your business. Evaluate featured tools for immediate ROI potential and competitive advantage in your market.",
			},
			core.TopicGeneral: {
				General: "Broader AI developments reflect the evolving landscape and can signal emerging trends worth monitoring.",
				SMB:     "General AI trends often reveal opportunities for early adopters. Consider how these developments might apply to your specific industry or workflow.",
			},
		},
		PainSignals:         builtinPainSignals(),
		SuggestionRules:     builtinSuggestionRules(),
		FallbackSuggestions: []string{"Hot take: Your perspective on '{title}'", "Listicle: {topic} trends SMBs need to watch right now"},
		ViralThreshold:      4,
		MaxSuggestions:      3,
		TitleExcerptRunes:   60,
	}
}

func builtinPainSignals() []PainSignal {
	return []PainSignal{
		{
			Name:      "content",
			Keywords:  []string{"content", "marketing", "writing", "blog", "newsletter", "social media", "thought leadership", "brand"},
			SMBImpact: "Coaches and consultants trapped on the content marketing treadmill should evaluate this for automating thought leadership — freeing time from admin-heavy content creation while maintaining an authentic voice.",
		},
		{
			Name:      "scheduling",
			Keywords:  []string{"scheduling", "calendar", "booking", "appointment", "onboarding", "intake", "client management", "crm"},
			SMBImpact: "For practices drowning in admin — from client onboarding to scheduling — this could reduce the manual overhead that caps revenue at billable hours. Healthcare clinics facing intake backlogs and coaching practices with leads slipping through cracks should watch closely.",
		},
		{
			Name:      "automation",
			Keywords:  []string{"automation", "workflow", "process", "automate", "efficiency", "streamline", "productivity"},
			SMBImpact: "This directly addresses the #1 pain across SMBs: manual repetitive processes. Professional service firms losing margin to non-billable admin, manufacturers drowning in spreadsheets, and coaches working late nights on operations should assess how this reduces hands-on busywork.",
		},
		{
			Name:      "compliance",
			Keywords:  []string{"compliance", "regulation", "hipaa", "gdpr", "audit", "privacy", "security", "data protection"},
			SMBImpact: "For healthcare practices navigating HIPAA, law firms managing compliance complexity, and manufacturers facing ISO requirements — this impacts your regulatory burden directly. Monitor whether new compliance tools emerge or if new rules add overhead to your AI adoption.",
		},
		{
			Name:      "hiring",
			Keywords:  []string{"hiring", "staffing", "talent", "workforce", "employee", "labor", "recruitment", "retention", "team"},
			SMBImpact: "SMBs struggling to scale without adding headcount take note. Coaches capped by 1:1 sessions, professional services firms with partners working non-billable hours, and manufacturers who can't find skilled machinists could use AI to bridge staffing gaps without ballooning payroll.",
		},
		{
			Name:      "cost",
			Keywords:  []string{"cost", "pricing", "affordable", "budget", "margin", "revenue", "profit", "roi", "subscription", "free tier"},
			SMBImpact: "Margin pressure is real across SMBs — from professional services firms watching labor costs erode profits to manufacturers with tight margins on custom work. Evaluate whether this offers measurable ROI at a price point that works without enterprise budgets.",
		},
		{
			Name:      "customer-service",
			Keywords:  []string{"chatbot", "customer service", "support", "conversation", "assistant", "agent", "virtual assistant"},
			SMBImpact: "Practices losing leads to inconsistent follow-up and clinics with overwhelmed receptionists should evaluate AI assistants carefully. The key concern across ICPs: will it feel impersonal? Look for solutions that augment your team rather than replace the human touch your clients expect.",
		},
		{
			Name:      "documents",
			Keywords:  []string{"document", "report", "paperwork", "filing", "template", "contract", "invoice"},
			SMBImpact: "Document-heavy businesses — law firms buried in case files, accounting firms with manual reporting, healthcare practices with charting backlogs, manufacturers tracking work-in-progress on whiteboards — this could cut hours of non-billable paperwork per week.",
		},
		{
			Name:      "scaling",
			Keywords:  []string{"scale", "scaling", "growth", "expand", "grow"},
			SMBImpact: "The central challenge across SMBs: growing without proportional cost increases. Coaches want to move from 1:1 to 1:many. Professional services need more throughput without more hires. Manufacturers need capacity without overtime. Assess how this helps you scale smartly.",
		},
		{
			Name:      "integration",
			Keywords:  []string{"integration", "api", "platform", "connect", "ecosystem", "plugin", "app store"},
			SMBImpact: "Siloed tools and poor integration plague SMBs — from disconnected practice management systems to manufacturing equipment that doesn't talk to each other. Look for whether this connects to tools you already use rather than creating another data island.",
		},
		{
			Name:      "healthcare",
			Keywords:  []string{"patient", "health", "clinical", "medical", "care", "diagnosis", "treatment", "ehr"},
			SMBImpact: "Small healthcare organizations spending evenings charting and scrambling before audits should assess this carefully. The promise: more time for patient care, less paperwork. The concern: patient data safety and maintaining trust. Look for HIPAA-ready, explainable AI.",
		},
		{
			Name:      "manufacturing",
			Keywords:  []string{"manufacturing", "production", "supply chain", "inventory", "logistics", "warehouse", "factory", "industrial"},
			SMBImpact: "Small manufacturers dealing with production bottlenecks, excess downtime, and legacy equipment should evaluate this. The goal: predictable output, lower scrap rates, and better visibility into real-time costs — without disrupting current operations during adoption.",
		},
	}
}

func builtinSuggestionRules() []SuggestionRule {
	return []SuggestionRule{
		{
			Keywords: []string{"tool", "app", "product", "launch", "release"},
			Suggestions: []string{
				"Review/comparison: How does this new tool stack up for small businesses?",
				"Tutorial: Getting started with the AI tool mentioned in '{title}'",
			},
		},
		{
			Keywords: []string{"jobs", "layoffs", "replace", "automate"},
			Suggestions: []string{
				"Opinion piece: What AI automation means for your industry's workforce",
				"Guide: How SMBs can use AI to augment (not replace) their teams",
			},
		},
		{
			Keywords: []string{"regulation", "policy", "law", "ban", "safety"},
			Suggestions: []string{
				"Explainer: What new AI regulations mean for small business owners",
				"Checklist: Is your business AI-compliant?",
			},
		},
		{
			Keywords: []string{"funding", "billion", "valuation", "invest"},
			Suggestions: []string{
				"Analysis: What this funding round signals for the AI market",
				"Listicle: Affordable AI alternatives for budget-conscious businesses",
			},
		},
		{
			Keywords: []string{"breakthrough", "research", "paper", "model"},
			Suggestions: []string{
				"Simplified explainer: What this AI breakthrough means in plain English",
				"Prediction piece: How this research will affect everyday business tools",
			},
		},
	}
}
