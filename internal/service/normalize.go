package service

import (
	"slices"

	"github.com/asquebay/order-stats-service/internal/model"
)

// normalizeDistributions согласует распределение по администрациям
// с общим ключом user_distribution, который читают старые потребители
//
//   - заглушка "нет пользователей" в данных администраций заменяется на "нет подразделений"
//   - если общий ключ пуст, туда зеркалируется результат администраций
//   - если общий ключ заполнен другим провайдером, его dataKind становится
//     administration при совпадении набора подписей, иначе user
func normalizeDistributions(metrics map[string]model.MetricResult) {
	admin, ok := metrics[MetricAdministration]
	if !ok {
		return
	}
	originalLabels := admin.Labels

	admin = rewriteNoUsers(admin)
	admin.DataKind = model.KindAdministration
	metrics[MetricAdministration] = admin

	generic, exists := metrics[MetricUserDistribution]
	if !exists {
		metrics[MetricUserDistribution] = admin.Clone()
		return
	}

	if sameLabelSet(generic.Labels, originalLabels) {
		generic = rewriteNoUsers(generic)
		generic.DataKind = model.KindAdministration
	} else {
		generic.DataKind = model.KindUser
	}
	metrics[MetricUserDistribution] = generic
}

func rewriteNoUsers(res model.MetricResult) model.MetricResult {
	if !slices.Contains(res.Labels, model.PlaceholderNoUsers) {
		return res
	}
	res = res.Clone()
	for i, l := range res.Labels {
		if l == model.PlaceholderNoUsers {
			res.Labels[i] = model.PlaceholderNoDepartments
		}
	}
	return res
}

func sameLabelSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
