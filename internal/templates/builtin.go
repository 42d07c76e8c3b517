package templates

import (
	"strings"

	"outreach_backend/internal/campaign/domain"
)

// Template is one subject/body pair before rendering.
type Template struct {
	Subject string
	Body    string
}

// DefaultIndustry is used when a lead carries no industry column.
const DefaultIndustry = "healthcare"

// builtin holds the stock per-industry sequences shipped with the product.
var builtin = map[string]map[domain.Stage]Template{
	"healthcare": {
		domain.StageInitial: {
			Subject: "Streamline Your Healthcare Operations with AI",
			Body: `Hi {{first_name}},

I noticed {{company}} is working in the healthcare space, and I wanted to reach out.

We help healthcare organizations automate their outreach and patient communication, saving 15+ hours per week while maintaining HIPAA compliance.

Would you be open to a 15-minute call to explore how we could help {{company}}?

Best regards,
Your Team`,
		},
		domain.StageFollowup1: {
			Subject: "Re: Streamline Your Healthcare Operations",
			Body: `Hi {{first_name}},

I wanted to follow up on my previous email about automating {{company}}'s patient outreach.

Our healthcare clients typically see:
• 40% increase in patient engagement
• 15+ hours saved per week
• Full HIPAA compliance

Would you have 15 minutes this week for a quick call?

Best,
Your Team`,
		},
		domain.StageFollowup2: {
			Subject: "Last follow-up: Healthcare automation for {{company}}",
			Body: `Hi {{first_name}},

This is my last follow-up. I understand you're busy, but I wanted to give you one more opportunity.

If healthcare automation isn't a priority right now, no worries. Feel free to reach out anytime if that changes.

Best of luck with {{company}}!

Best regards,
Your Team`,
		},
	},
	"fintech": {
		domain.StageInitial: {
			Subject: "Scale Your Fintech Outreach Without the Headaches",
			Body: `Hi {{first_name}},

I came across {{company}} and was impressed by what you're building in fintech.

We help fintech companies automate their client outreach while maintaining compliance and personalization at scale.

Our clients typically close 30% more deals with 50% less manual work.

Would you be interested in a brief call to see if we could help {{company}}?

Best,
Your Team`,
		},
		domain.StageFollowup1: {
			Subject: "Re: Scale Your Fintech Outreach",
			Body: `Hi {{first_name}},

Following up on my email about automating {{company}}'s client outreach.

Quick question: Are you currently spending too much time on manual outreach tasks?

We've helped several fintech companies in your space automate their workflows while staying compliant.

Let me know if you'd like to see a quick demo.

Best regards,
Your Team`,
		},
		domain.StageFollowup2: {
			Subject: "Final note about {{company}}'s outreach automation",
			Body: `Hi {{first_name}},

I'll keep this brief – this is my final follow-up.

If outreach automation isn't on your radar right now, I totally understand. But if you'd ever like to explore how we could help {{company}} scale more efficiently, just reply to this email.

Wishing you continued success!

Best,
Your Team`,
		},
	},
	"edtech": {
		domain.StageInitial: {
			Subject: "Help {{company}} Reach More Students Efficiently",
			Body: `Hi {{first_name}},

I noticed {{company}} is making waves in the edtech space!

We specialize in helping edtech companies automate their student and institution outreach, allowing you to focus on building great educational products.

Our clients see 3x more engagement with half the manual effort.

Would you be open to a quick 15-minute call to discuss how we could help {{company}}?

Cheers,
Your Team`,
		},
		domain.StageFollowup1: {
			Subject: "Re: Reach More Students at {{company}}",
			Body: `Hi {{first_name}},

Just wanted to circle back about automating {{company}}'s outreach to students and institutions.

Many edtech companies struggle with:
• Time-consuming manual outreach
• Low engagement rates
• Difficulty scaling personalization

We solve all three. Would you like to see how?

Best,
Your Team`,
		},
		domain.StageFollowup2: {
			Subject: "Last message about {{company}}'s outreach",
			Body: `Hi {{first_name}},

This will be my last email. I don't want to clutter your inbox!

If automating outreach becomes a priority for {{company}}, feel free to reach out anytime.

Keep doing great work in edtech!

Best regards,
Your Team`,
		},
	},
}

// replyFallback is the stock auto-response when no custom reply template exists.
var replyFallback = Template{
	Subject: "Let's schedule a call!",
	Body: `Hi {{first_name}},

Thanks for your reply! I'd love to connect with you.

Please book a time that works best for you here:
{{calendar_link}}

Looking forward to our conversation!

Best regards`,
}

// Builtin returns the stock template for an industry and stage. Unknown
// industries fall back to the default industry; the reply stage has a single
// industry-independent fallback.
func Builtin(industry string, stage domain.Stage) Template {
	if stage == domain.StageReply {
		return replyFallback
	}

	sequence, ok := builtin[normalizeIndustry(industry)]
	if !ok {
		sequence = builtin[DefaultIndustry]
	}
	return sequence[stage]
}

func normalizeIndustry(industry string) string {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if _, ok := builtin[industry]; ok {
		return industry
	}
	return DefaultIndustry
}
