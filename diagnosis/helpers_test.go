package diagnosis

import "tcm-diagnosis/models"

// entities baut Store-Inhalte aus (herb, disease)-Paaren; IDs werden fortlaufend vergeben.
func entities(herbs, diseases []string, pairs ...[2]string) Entities {
	var e Entities
	hid := map[string]uint{}
	did := map[string]uint{}
	for i, h := range herbs {
		hid[h] = uint(i + 1)
		e.Herbs = append(e.Herbs, models.Herb{ID: uint(i + 1), Name: h})
	}
	for i, d := range diseases {
		did[d] = uint(i + 1)
		e.Diseases = append(e.Diseases, models.Disease{ID: uint(i + 1), Name: d})
	}
	for i, p := range pairs {
		e.Associations = append(e.Associations, models.HerbDiseaseAssociation{
			ID: uint(i + 1), HerbID: hid[p[0]], DiseaseID: did[p[1]],
		})
	}
	return e
}
