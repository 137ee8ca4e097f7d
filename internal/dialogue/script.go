package dialogue

// Script holds every fixed text and threshold the engine uses. The engine
// only reads it; question order and thresholds live here and nowhere else.
type Script struct {
	CheckinGreetings map[CheckinKind]string
	CheckinPrompts   CheckinPrompts
	CheckinInsights  CheckinInsights
	NoteTags         []KeywordGroup

	BurnoutGreeting        string
	BurnoutQuestions       []string
	BurnoutScaleMin        int
	BurnoutScaleMax        int
	BurnoutInvalidPrompt   string
	BurnoutSubscales       []Subscale
	BurnoutRecommendations map[RiskLevel][]string

	Reminders                map[ReminderType]ReminderCopy
	PositiveKeywords         []string
	PositiveEncouragement    string
	NeutralEncouragement     string
	ReminderEmptyReplyPrompt string

	GeneralFallback string
}

type CheckinPrompts struct {
	Mood         string
	Energy       string
	Stress       string
	Productivity string
	Note         string
	Invalid      string
	SkipWord     string
	Thanks       string
}

// CheckinInsights are the threshold remarks appended to the checkin summary.
type CheckinInsights struct {
	HighMoodAt       int
	HighMood         string
	LowMoodAt        int
	LowMood          string
	HighStressAt     int
	HighStress       string
	LowEnergyAt      int
	LowEnergy        string
	HighProductiveAt int
	HighProductivity string
	Fallback         string
}

type KeywordGroup struct {
	Tag      string
	Keywords []string
}

// Subscale groups burnout questions by zero-based index.
type Subscale struct {
	Name      string
	Questions []int
}

type ReminderCopy struct {
	Title       string
	Message     string
	Description string
}

const (
	SubscaleEmotionalExhaustion    = "emotional_exhaustion"
	SubscaleDepersonalization      = "depersonalization"
	SubscalePersonalAccomplishment = "personal_accomplishment"
)

var CheckinDescriptions = map[CheckinKind]string{
	CheckinMorning: "Start the day with mood and energy tracking",
	CheckinMidday:  "Flexible check-ins for midday or special occasions",
	CheckinEvening: "End the day with reflection and planning",
}

func DefaultScript() Script {
	return Script{
		CheckinGreetings: map[CheckinKind]string{
			CheckinMorning: "Good morning! 🌅 Let's start your day with a quick check-in. This will help track your wellbeing and give you insights over time.",
			CheckinMidday:  "Time for a midday check-in! 🌞 Let's pause and see how you're doing. This helps maintain awareness of your mental state throughout the day.",
			CheckinEvening: "Good evening! 🌙 Let's wrap up your day with a quick reflection. This helps you process the day and prepare for restful sleep.",
		},
		CheckinPrompts: CheckinPrompts{
			Mood:         "On a scale of 1-10, how would you rate your mood right now?",
			Energy:       "Got it. How's your energy level today? (1-10)",
			Stress:       "And your stress level? (1-10, where 10 is most stressed)",
			Productivity: "How would you rate your productivity feeling today? (1-10)",
			Note:         "Any notes or thoughts you'd like to add about how you're feeling? (or type 'skip')",
			Invalid:      "Please provide a number between 1 and 10.",
			SkipWord:     "skip",
			Thanks:       "Thanks for checking in!",
		},
		CheckinInsights: CheckinInsights{
			HighMoodAt:       7,
			HighMood:         "Your mood seems good today! 😊",
			LowMoodAt:        4,
			LowMood:          "I notice your mood is lower today. Remember, it's okay to have tough days. 🤗",
			HighStressAt:     7,
			HighStress:       "Your stress levels are high. Consider taking some breaks today. 🧘",
			LowEnergyAt:      4,
			LowEnergy:        "Your energy seems low. Make sure to prioritize rest and nutrition. ⚡",
			HighProductiveAt: 7,
			HighProductivity: "Great productivity feeling today! 🚀",
			Fallback:         "I've logged your check-in. Keep taking care of yourself! 💚",
		},
		NoteTags: []KeywordGroup{
			{Tag: "work", Keywords: []string{"work", "job", "project", "deadline", "meeting", "boss", "colleague"}},
			{Tag: "personal", Keywords: []string{"family", "relationship", "health", "money", "financial"}},
			{Tag: "coding", Keywords: []string{"code", "bug", "programming", "development", "debugging"}},
			{Tag: "time", Keywords: []string{"time", "schedule", "busy", "rushed"}},
		},

		BurnoutGreeting: "Let's do a quick burnout assessment. I'll ask you several questions to better understand how you've been feeling. Please answer honestly on a scale of 1-5 (1 = never, 5 = always).",
		BurnoutQuestions: []string{
			"I feel emotionally drained from my work.",
			"I have trouble sleeping because of work stress.",
			"I feel cynical about my work and colleagues.",
			"I doubt the significance of my work.",
			"I feel overwhelmed by my workload.",
			"I feel less empathetic toward colleagues and users.",
			"I have difficulty concentrating on tasks.",
			"I feel physically exhausted even after rest.",
		},
		BurnoutScaleMin:      1,
		BurnoutScaleMax:      5,
		BurnoutInvalidPrompt: "Please provide a number between 1 and 5 (1 = never, 5 = always).",
		BurnoutSubscales: []Subscale{
			{Name: SubscaleEmotionalExhaustion, Questions: []int{0, 1, 4, 7}},
			{Name: SubscaleDepersonalization, Questions: []int{2, 5}},
			{Name: SubscalePersonalAccomplishment, Questions: []int{3, 6}},
		},
		BurnoutRecommendations: map[RiskLevel][]string{
			RiskLow: {
				"Keep up your current routines; they are working.",
				"Check in with yourself weekly to catch early signs of stress.",
			},
			RiskModerate: {
				"Schedule short breaks between focused work blocks.",
				"Protect your sleep and keep a consistent bedtime.",
				"Talk to someone you trust about what is weighing on you.",
			},
			RiskHigh: {
				"Reduce optional commitments for the next two weeks.",
				"Set clear boundaries on after-hours work.",
				"Consider booking a session with a therapist on the platform.",
			},
			RiskSevere: {
				"Please reach out to a mental health professional soon.",
				"Talk to your manager about workload and time off.",
				"Prioritise rest, nutrition and movement every day.",
			},
		},

		Reminders: map[ReminderType]ReminderCopy{
			ReminderDrinkWater: {
				Title:       "Hydration Break",
				Message:     "💧 Time for a hydration break! Your brain is about 75% water, so staying hydrated helps you think clearly. Grab a glass of water! 🧠✨",
				Description: "Hydration reminders to keep users healthy",
			},
			ReminderScreenTimeBreak: {
				Title:       "Screen Break",
				Message:     "👀 Your eyes need a break! Follow the 20-20-20 rule: Look at something 20 feet away for 20 seconds. Your future self will thank you! 🌟",
				Description: "Eye health reminders for screen breaks",
			},
			ReminderCodeBreak: {
				Title:       "Code Break",
				Message:     "🛑 Step away from the code for a moment! Sometimes the best debugging happens when you're not staring at the screen. Take 5 minutes to reset. 🔄",
				Description: "Mental breaks from coding to prevent burnout",
			},
			ReminderCreativeDigest: {
				Title:       "Creative Time",
				Message:     "🎨 Time to feed your creative side! Read an interesting article, listen to music, or just let your mind wander. Creativity fuels innovation! 💡",
				Description: "Creative inspiration and learning content",
			},
			ReminderPostureCheck: {
				Title:       "Posture Check",
				Message:     "🧘 Posture check! Roll those shoulders, straighten your back, and adjust your screen. Your spine will love you for it! 💪",
				Description: "Physical wellness and posture reminders",
			},
			ReminderDeepBreathing: {
				Title:       "Breathing Break",
				Message:     "🫁 Let's take a breathing break! Inhale for 4, hold for 4, exhale for 4. Repeat 3 times. Your nervous system needs this reset! 😌",
				Description: "Stress relief through breathing exercises",
			},
			ReminderStretchBreak: {
				Title:       "Stretch Break",
				Message:     "🤸 Time to stretch! Your muscles have been in the same position too long. Stand up, reach for the sky, and move that body! 🌈",
				Description: "Physical movement and stretching reminders",
			},
			ReminderMentalHealthCheckin: {
				Title:       "Mental Health Check-in",
				Message:     "💚 How are you doing mentally? Remember, it's okay to not be okay. Your mental health matters more than any deadline. Check in with yourself. 🤗",
				Description: "Weekly mental wellness check-ins",
			},
		},
		PositiveKeywords:         []string{"good", "great", "yes", "done", "better", "refreshed", "helped"},
		PositiveEncouragement:    "Awesome! 🌟 I'm glad you took that moment for yourself. These small breaks make a big difference in your wellbeing and productivity!",
		NeutralEncouragement:     "Thanks for being honest! 💙 Even acknowledging the reminder is a step forward. Remember, self-care isn't selfish - it's necessary. You've got this! 🚀",
		ReminderEmptyReplyPrompt: "Let me know how it went when you have a moment.",

		GeneralFallback: "I'm not sure how to help with that.",
	}
}
