package links

import "github.com/YojanaSetu/yojana-mvp/engine/domain"

// Seed is the curated starting set of scheme link entries for AP and
// Telangana. cmd/synclinks writes it out as the links artifact and downloads
// the PDF source links into the corpus directory.
var Seed = []domain.SchemeLink{
	{
		SchemeID:   "ap_ntr_bharosa_ssp",
		SchemeName: "AP Social Security Pensions (NTR Bharosa)",
		State:      "ap",
		ApplyLink:  "https://gsws-nbm.ap.gov.in/NBM/Home/Main",
		SourceLinks: []string{
			"https://sspensions.ap.gov.in/",
			"https://sspensions.ap.gov.in/SSP/Documents/GO%20MS%2043%2013.06.2024.pdf",
		},
	},
	{
		SchemeID:   "tel_kalyana_lakshmi",
		SchemeName: "Kalyana Lakshmi / Shaadi Mubarak",
		State:      "telangana",
		ApplyLink:  "https://telanganaepass.cgg.gov.in/KalyanaLakshmiLinks.jsp",
		SourceLinks: []string{
			"https://telanganaepass.cgg.gov.in/KalyanLakshmi.do",
			"https://wdsc.telangana.gov.in/PwD/GOs/GO.Ms.No.04%20PwD%20Kalyana%20Lashmi%20Pathakam.PDF",
		},
	},
	{
		SchemeID:   "tel_aasara_pension",
		SchemeName: "Aasara Pensions",
		State:      "telangana",
		ApplyLink:  "https://www.cheyutha.telangana.gov.in/SSPTG/UserInterface/Portal/GeneralSearch.aspx",
		SourceLinks: []string{
			"https://medak.telangana.gov.in/scheme/aasara-pensions/",
			"https://services.india.gov.in/service/detail/telangana-aasara-pensions-undersociety-for-elimination-of-rural-poverty-details-of-the-beneficiariess",
		},
	},
}
