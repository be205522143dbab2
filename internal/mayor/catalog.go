// Package mayor defines the core game: catalog, scoring, the session state
// machine and the timed event scheduler.
// It has no dependencies outside the standard library.
package mayor

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Challenge struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Cost         int    `json:"cost"`
	CategoryID   string `json:"categoryId"`
	Contribution int    `json:"contribution"`
}

// Catalog is the read-only set of categories and challenges for a session.
// Build it with NewCatalog; input is expected to be validated already.
type Catalog struct {
	categories []Category
	challenges []Challenge
	catIdx     map[string]int
	chIdx      map[string]int
}

func NewCatalog(categories []Category, challenges []Challenge) *Catalog {
	c := &Catalog{
		categories: append([]Category(nil), categories...),
		challenges: append([]Challenge(nil), challenges...),
		catIdx:     make(map[string]int, len(categories)),
		chIdx:      make(map[string]int, len(challenges)),
	}
	for i, cat := range c.categories {
		c.catIdx[cat.ID] = i
	}
	for i, ch := range c.challenges {
		c.chIdx[ch.ID] = i
	}
	return c
}

// Categories returns the categories in display order.
func (c *Catalog) Categories() []Category {
	return append([]Category(nil), c.categories...)
}

func (c *Catalog) Challenges() []Challenge {
	return append([]Challenge(nil), c.challenges...)
}

func (c *Catalog) ChallengeByID(id string) (Challenge, bool) {
	i, ok := c.chIdx[id]
	if !ok {
		return Challenge{}, false
	}
	return c.challenges[i], true
}

func (c *Catalog) CategoryByID(id string) (Category, bool) {
	i, ok := c.catIdx[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

type Band string

const (
	BandRed    Band = "red"
	BandOrange Band = "orange"
	BandGreen  Band = "green"
)

// BandFor maps a category percentage to the colour band shown on its meter.
func BandFor(pct int) Band {
	switch {
	case pct < 30:
		return BandRed
	case pct < 50:
		return BandOrange
	default:
		return BandGreen
	}
}

// DefaultCatalog returns the categories and challenges the kiosk ships with.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultCategories, defaultChallenges)
}

var defaultCategories = []Category{
	{ID: "ddiv", Name: "Dezvoltare durabilă și infrastructură vitală", Color: "#10B981"},
	{ID: "cec", Name: "Comunitate, educație și cultură", Color: "#A855F7"},
	{ID: "cvcs", Name: "Calitatea vieții și coeziunea socială", Color: "#3B82F6"},
}

var defaultChallenges = []Challenge{
	{ID: "a1", Name: "Reabilitarea rețelei de apă și canalizare", Cost: 45000, CategoryID: "ddiv", Contribution: 20},
	{ID: "a2", Name: "Stație nouă de tratare a apei și bazin de rezervă", Cost: 70000, CategoryID: "ddiv", Contribution: 25},
	{ID: "a3", Name: "Modernizarea spitalelor și a policlinicilor", Cost: 60000, CategoryID: "ddiv", Contribution: 20},
	{ID: "a4", Name: "Extinderea și modernizarea infrastructurii rutiere și de acces la parcul industrial", Cost: 65000, CategoryID: "ddiv", Contribution: 25},
	{ID: "a5", Name: "Implementarea unui sistem inteligent de gestionare a deșeurilor", Cost: 50000, CategoryID: "ddiv", Contribution: 20},
	{ID: "a6", Name: "Construirea unui centru logistic intermodal (rutier-feroviar)", Cost: 55000, CategoryID: "ddiv", Contribution: 22},
	{ID: "a7", Name: "Piste pentru biciclete", Cost: 25000, CategoryID: "ddiv", Contribution: 25},
	{ID: "a8", Name: "Reîmpădurirea zonei periurbane", Cost: 20000, CategoryID: "ddiv", Contribution: 25},
	{ID: "a9", Name: "Panouri solare pe clădirile publice", Cost: 40000, CategoryID: "ddiv", Contribution: 18},

	{ID: "i1", Name: "Modernizarea liceelor și dotarea cu laboratoare STEM", Cost: 65000, CategoryID: "cvcs", Contribution: 24},
	{ID: "i2", Name: "Extinderea și modernizarea grădinițelor și a creșelor", Cost: 70000, CategoryID: "cvcs", Contribution: 25},
	{ID: "i3", Name: "Crearea unui Centru cultural multifuncțional (cinema, expoziții, bibliotecă, muzeu)", Cost: 40000, CategoryID: "cvcs", Contribution: 18},
	{ID: "i4", Name: "Amenajarea centrului social pentru tineri și ONG-uri locale", Cost: 45000, CategoryID: "cvcs", Contribution: 25},
	{ID: "i5", Name: "Burse și programe de mentorat pentru elevi din medii vulnerabile și a celor merituoși", Cost: 25000, CategoryID: "cvcs", Contribution: 20},
	{ID: "i6", Name: "Organizarea „Zilei Orașului”", Cost: 65000, CategoryID: "cvcs", Contribution: 17},
	{ID: "i7", Name: "Dezvoltarea unui parc tehnologic pentru start-up-uri locale și tineri antreprenori", Cost: 30000, CategoryID: "cvcs", Contribution: 25},
	{ID: "i8", Name: "Reabilitarea spațiilor verzi și crearea de zone de recreere moderne pentru comunitate", Cost: 58000, CategoryID: "cvcs", Contribution: 25},
	{ID: "i9", Name: "Implementarea unui program de educație ecologică și digitală în școli", Cost: 22000, CategoryID: "cvcs", Contribution: 22},
	{ID: "i10", Name: "Calamitate naturală", Description: "O inundație a distrus infrastructura școlii", Cost: 50000, CategoryID: "cvcs", Contribution: 30},

	{ID: "e1", Name: "Extinderea parcului central și zone de agrement, crearea unui centru pentru tineret", Cost: 48000, CategoryID: "cec", Contribution: 20},
	{ID: "e2", Name: "Amenajare terenuri sportive", Cost: 40000, CategoryID: "cec", Contribution: 22},
	{ID: "e3", Name: "Program de îngrijire la domiciliu pentru vârstnici singuri", Cost: 45000, CategoryID: "cec", Contribution: 17},
	{ID: "e4", Name: "Locuințe pentru tineri specialiști (profesori, medici)", Cost: 100000, CategoryID: "cec", Contribution: 45},
	{ID: "e5", Name: "Crearea unei rețele de transport public electric", Cost: 65000, CategoryID: "cec", Contribution: 24},
	{ID: "e6", Name: "Sprijin pentru familiile vulnerabile", Cost: 35000, CategoryID: "cec", Contribution: 20},
	{ID: "e7", Name: "Reabilitarea centrului social și crearea unui centru pentru persoane cu dizabilități", Cost: 38000, CategoryID: "cec", Contribution: 18},
	{ID: "e8", Name: "Implementarea unui program de eficiență energetică pentru clădirile publice și locuințe (Anvelopare Clădiri)", Cost: 60000, CategoryID: "cec", Contribution: 20},
	{ID: "e9", Name: "Dezvoltarea unui incubator de afaceri locale și programe de formare profesională pentru tineri", Cost: 45000, CategoryID: "cec", Contribution: 19},
}
