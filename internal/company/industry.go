package company

// DefaultIndustry is assumed for companies without a curated industry tag.
const DefaultIndustry = "Technology"

// industries tags every curated company. Keys match the canonical names in
// patterns.yaml.
var industries = map[string]string{
	"Amazon":    "Cloud/E-commerce",
	"Google":    "Technology/Internet",
	"Apple":     "Technology/Consumer Electronics",
	"Netflix":   "Entertainment/Streaming",
	"Meta":      "Social Media/Technology",
	"Microsoft": "Technology/Cloud",

	"Flipkart":     "E-commerce",
	"Myntra":       "E-commerce/Fashion",
	"Carwale":      "Automotive/Technology",
	"Swiggy":       "Food Delivery/Logistics",
	"Zomato":       "Food Delivery/Restaurant Aggregator",
	"PayTM":        "Fintech/Digital Payments",
	"PhonePe":      "Fintech/Digital Payments",
	"PayPal":       "Fintech/Digital Payments",
	"Razorpay":     "Fintech/Payments Gateway",
	"Ola":          "Transportation/Mobility",
	"Uber":         "Transportation/Mobility",
	"Byju":         "EdTech",
	"Unacademy":    "EdTech",
	"Vedantu":      "EdTech",
	"Freshworks":   "SaaS/Customer Engagement",
	"Zoho":         "SaaS/Enterprise Software",
	"InMobi":       "AdTech/Marketing Technology",
	"ShareChat":    "Social Media/Regional Content",
	"Dream11":      "Fantasy Sports/Gaming",
	"BigBasket":    "E-commerce/Online Grocery",
	"Grofers":      "E-commerce/Online Grocery",
	"Dunzo":        "Hyperlocal Delivery/Logistics",
	"Nykaa":        "E-commerce/Beauty & Lifestyle",
	"PolicyBazaar": "InsurTech/Fintech",
	"MakeMyTrip":   "Travel & Tourism",
	"BookMyShow":   "Entertainment/Ticketing",
	"Lenskart":     "E-commerce/Eyewear",
	"UrbanCompany": "Services/Marketplace",
	"Cred":         "Fintech/Credit & Rewards",
}

// Industry returns the industry tag for a canonical company name.
func Industry(name string) string {
	if industry, ok := industries[name]; ok {
		return industry
	}
	return DefaultIndustry
}
