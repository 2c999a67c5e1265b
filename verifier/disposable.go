package verifier

import "strings"

var disposableDomains = loadDisposableDomains()

func loadDisposableDomains() map[string]bool {
	domains := make(map[string]bool)
	for _, d := range strings.Split(disposableDomainList, "\n") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains[d] = true
		}
	}
	return domains
}

const disposableDomainList = `
0-mail.com
0815.ru
0clickemail.com
10minutemail.com
10minutemail.co.za
123-m.com
1pad.de
20minutemail.com
2prong.com
30minutemail.com
33mail.com
4warding.com
60minutemail.com
675hosting.com
6paq.com
6url.com
7tags.com
9ox.net
agedmail.com
anonbox.net
anonmails.de
anonymbox.com
antispam.de
binkmail.com
bofthew.com
bouncr.com
brefmail.com
bugmenot.com
centermail.com
chogmail.com
courrieltemporaire.com
cust.in
deadaddress.com
deadspam.com
despammed.com
devnullmail.com
discard.email
discardmail.com
discardmail.de
dispostable.com
dodgeit.com
dodgit.com
donemail.ru
dontsendmespam.de
dump-email.info
dumpyemail.com
e4ward.com
emailinfive.com
emailsensei.com
emailtemporario.com.br
emailwarden.com
ephemail.net
explodemail.com
fake-mail.com
fakeinbox.com
filzmail.com
getairmail.com
getonemail.com
gishpuppy.com
guerillamail.biz
guerillamail.com
guerillamail.net
guerillamail.org
guerrillamail.biz
guerrillamail.com
guerrillamail.de
guerrillamail.info
guerrillamail.net
guerrillamail.org
guerrillamailblock.com
haltospam.com
harakirimail.com
hidemail.de
hmamail.com
ieatspam.eu
incognitomail.com
incognitomail.net
jetable.com
jetable.fr.nf
jetable.net
jetable.org
junk1e.com
kasmail.com
killmail.com
killmail.net
klzlk.com
kurzepost.de
letthemeatspam.com
litedrop.com
mail-temp.com
mail-temporaire.fr
mail4trash.com
mailcatch.com
maildrop.cc
maileater.com
mailexpire.com
mailforspam.com
mailin8r.com
mailinator.com
mailinator.net
mailinator.org
mailinator2.com
mailincubator.com
mailme.ir
mailmetrash.com
mailmoat.com
mailnesia.com
mailnull.com
mailsac.com
mailscrap.com
mailshell.com
mailsiphon.com
mailslite.com
mailtemp.info
mailtrash.net
mailzilla.com
meltmail.com
mintemail.com
moncourrier.fr.nf
mt2014.com
mycleaninbox.net
mytemp.email
mytempemail.com
mytrashmail.com
neverbox.com
no-spam.ws
nobulk.com
nomail2me.com
nospam4.us
nospamfor.us
nospammail.net
notmailinator.com
nowmymail.com
objectmail.com
oneoffemail.com
onewaymail.com
oopi.org
otherinbox.com
pookmail.com
proxymail.eu
punkass.com
quickinbox.com
rcpt.at
recode.me
rejectmail.com
rmqkr.net
safe-mail.net
sharklasers.com
shieldedmail.com
shitmail.me
sneakemail.com
sofort-mail.de
sogetthis.com
spam.la
spam4.me
spamavert.com
spambog.com
spambog.de
spambog.ru
spambox.us
spamcannon.com
spamcero.com
spamcorptastic.com
spamday.com
spamex.com
spamfree24.com
spamfree24.de
spamfree24.eu
spamfree24.net
spamfree24.org
spamgourmet.com
spamherelots.com
spamhereplease.com
spamhole.com
spaml.com
spammotel.com
spamobox.com
spamspot.com
spamthis.co.uk
spamthisplease.com
suremail.info
teleworm.us
temp-mail.io
temp-mail.org
tempail.com
tempe-mail.com
tempemail.biz
tempemail.com
tempemail.net
tempinbox.co.uk
tempinbox.com
tempmail.it
tempmail.org
tempmail2.com
tempmaildemo.com
tempmailer.com
tempmailer.de
tempomail.fr
temporarily.de
temporaryemail.net
temporaryforwarding.com
temporaryinbox.com
thankyou2010.com
thisisnotmyrealemail.com
throwawayemailaddress.com
throwawaymail.com
tilien.com
tmailinator.com
tradermail.info
trash-mail.at
trash-mail.com
trash-mail.de
trash2009.com
trashdevil.com
trashemail.de
trashmail.at
trashmail.com
trashmail.de
trashmail.me
trashmail.net
trashmail.org
trashmail.ws
trashmailer.com
trashymail.com
trashymail.net
tyldd.com
veryrealemail.com
vsimcard.com
wegwerf-emails.de
wegwerfadresse.de
wegwerfemail.com
wegwerfemail.de
wegwerfmail.de
wegwerfmail.info
wegwerfmail.net
wegwerfmail.org
wh4f.org
whyspam.me
willselfdestruct.com
wronghead.com
xagloo.com
xemaps.com
xmaily.com
xoxy.net
yep.it
yopmail.com
yopmail.fr
yopmail.net
zehnminutenmail.de
zippymail.info
zoemail.org
`
