package domain

import "strings"

// interwikiPrefixes are link prefixes which leave the current wiki: every
// Wikipedia language edition, whether or not it can be loaded, plus the
// sister projects.  "w" and "wikipedia" are absent since the latter is also
// the project namespace alias.
var interwikiPrefixes = func() map[string]struct{} {
	const editions = `
aa ab ace ady af ak als alt am ami an ang anp ar arc ary arz as ast atj av
avk awa ay az azb ba ban bar bat-smg bbc bcl be be-tarask be-x-old bew bg bh
bi bjn blk bm bn bo bpy br bs btm bug bxr ca cbk-zam cdo ce ceb ch cho chr chy
ckb co cr crh cs csb cu cv cy da dag de dga din diq dsb dtp dty dv dz ee el
eml en eo es et eu ext fa fat ff fi fiu-vro fj fo fon fr frp frr fur fy ga gag
gan gcr gd gl glk gn gom gor got gpe gu guc gur guw gv ha hak haw he hi hif ho
hr hsb ht hu hy hyw hz ia id ie ig igl ii ik ilo inh io is it iu ja jam jbo
jv ka kaa kab kbd kbp kcg kg ki kj kk kl km kn ko koi kr krc ks ksh ku kus kv
kw ky la lad lb lbe lez lfn lg li lij lld lmo ln lo lrc lt ltg lv mad mai
map-bms mdf mg mh mhr mi min mk ml mn mni mnw mo mr mrj ms mt mus mwl my myv
mzn na nah nap nds nds-nl ne new ng nia nl nn no nov nqo nr nrm nso nv ny oc
olo om or os pa pag pam pap pcd pcm pdc pfl pi pih pl pms pnb pnt ps pt pwn
qu rm rmy rn ro roa-rup roa-tara ru rue rw sa sah sat sc scn sco sd se sg sh
shi shn si simple sk skr sl sm smn sn so sq sr srn ss st stq su sv sw szl szy
ta tay tcy tdd te tet tg th ti tk tl tly tn to tpi tr trv ts tt tum tw ty
tyv udm ug uk ur uz ve vec vep vi vls vo wa war wo wuu xal xh xmf yi yo yue
za zea zgh zh zh-classical zh-min-nan zh-yue zu
`
	const projects = `
b wikibooks c commons d wikidata f wikifunctions m meta metawikimedia mw
mediawikiwiki n wikinews q wikiquote s wikisource species wikispecies v
wikiversity voy wikivoyage wikt wiktionary foundation wmf outreach incubator
phab phabricator toollabs wikitech
`
	m := map[string]struct{}{}
	for _, prefix := range strings.Fields(editions + projects) {
		m[prefix] = struct{}{}
	}
	return m
}()
