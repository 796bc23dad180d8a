package lookup

// commonWords lists everyday English words that start sentences or appear
// capitalised mid-phrase. A candidate phrase containing any of these is
// never classified as a person name.
var commonWords = []string{
	// Articles and basic prepositions
	"I", "A", "An", "The", "Of", "In", "On", "At", "To", "From", "By",
	"With", "As", "But", "If", "Or", "For", "Into", "Onto", "Upon",

	// Pronouns
	"You", "He", "She", "It", "We", "They", "Me", "Him", "Her", "Us", "Them",
	"My", "Your", "His", "Its", "Our", "Their", "Mine", "Yours", "Hers",
	"Ours", "Theirs", "This", "That", "These", "Those",

	// Common verbs
	"Is", "Are", "Was", "Were", "Be", "Been", "Have", "Has", "Had",
	"Do", "Does", "Did", "Will", "Would", "Can", "Could", "Should", "May",
	"Might", "Must", "Shall", "Going", "Gone", "Get", "Got", "Getting",

	// Conjunctions and connectors
	"And", "Because", "While", "Until", "Unless", "Though",
	"Although", "However", "Therefore", "Thus", "Hence", "So", "Since",
	"Whether", "Where", "When", "What", "Who", "Why", "How",

	// Common adverbs
	"Very", "Really", "Quite", "Rather", "Too", "Also", "Just", "Only",
	"Now", "Then", "Here", "There", "Today", "Tomorrow", "Yesterday",
	"Always", "Never", "Sometimes", "Often", "Rarely",

	// Imperative verbs that commonly precede a name
	"Visit", "See", "Contact", "Call", "Email", "Meet", "Ask", "Tell",
	"Send", "Find", "Check", "Use", "Try", "Go", "Come", "Look",

	// Greetings and common expressions
	"Hello", "Hi", "Hey", "Goodbye", "Bye", "Good", "Bad", "Yes", "No",
	"Please", "Thank", "Thanks", "Sorry", "Excuse", "Welcome", "Dear",

	// Numbers and quantities
	"One", "Two", "Three", "First", "Second", "Third", "Last",
	"Many", "Much", "More", "Most", "Some", "Any", "All", "None", "Few",
	"Several", "Every", "Each", "Both", "Either", "Neither",

	// Time-related
	"Day", "Week", "Month", "Year", "Time", "Date", "Morning", "Evening",
	"Night", "Soon", "Later",

	// Other common words
	"Way", "Thing", "Things", "Something", "Anything", "Nothing",
	"Everything", "Someone", "Anyone", "Everyone", "Nobody", "Everybody",
	"Like", "About", "Over", "Under", "Between", "Among", "Through",
}
