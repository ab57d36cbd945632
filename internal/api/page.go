package api

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

// The single page: a sign-in prompt while signed out, otherwise the deposit
// form, the live credits label and the transient deposit notification.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>slotvault</title></head>
<body>
<h1>slotvault</h1>
<p>Contract <code>{{.ContractID}}</code> on {{.NetworkName}}</p>

<div id="signed-out" hidden>
  <p>Sign in with your NEAR account to deposit and view your credits.
     Keys live in <a href="{{.WalletURL}}">your wallet</a>.</p>
  <form id="signin-form">
    <input id="account" placeholder="account.testnet" required>
    <input id="secret" placeholder="ed25519:..." type="password" required>
    <button>Sign in</button>
  </form>
</div>

<div id="signed-in" hidden>
  <p>Credits: <span id="credits"></span></p>
  <form id="deposit-form">
    <fieldset id="deposit-fieldset">
      <input id="amount" value="10" required>
      <button>Deposit</button>
    </fieldset>
  </form>
  <button id="play">Play</button>
  <button id="signout">Sign out</button>
</div>

<div id="notification" hidden>
  Deposit accepted: <a id="notification-link" target="_blank">view transaction</a>
</div>

<script>
const api = (path, opts = {}) => fetch('/api/v1' + path, Object.assign({
  headers: {
    'Content-Type': 'application/json',
    'Authorization': 'Bearer ' + (localStorage.getItem('token') || '')
  }
}, opts));

async function refreshCredits() {
  const res = await api('/credits');
  if (res.ok) {
    const body = await res.json();
    document.getElementById('credits').textContent = body.credits_yocto;
  }
}

async function pollNotification() {
  const res = await api('/notifications');
  const note = document.getElementById('notification');
  if (res.status === 200) {
    const body = await res.json();
    document.getElementById('notification-link').href = body.explorer_url;
    note.hidden = false;
  } else {
    note.hidden = true;
  }
}

async function render() {
  const res = await api('/session');
  const status = await res.json();
  document.getElementById('signed-out').hidden = status.signed_in;
  document.getElementById('signed-in').hidden = !status.signed_in;
  if (status.signed_in) refreshCredits();
}

document.getElementById('signin-form').addEventListener('submit', async e => {
  e.preventDefault();
  const res = await api('/session', {method: 'POST', body: JSON.stringify({
    account_id: document.getElementById('account').value,
    secret_key: document.getElementById('secret').value
  })});
  if (res.ok) localStorage.setItem('token', (await res.json()).token);
  render();
});

document.getElementById('deposit-form').addEventListener('submit', async e => {
  e.preventDefault();
  const fieldset = document.getElementById('deposit-fieldset');
  fieldset.disabled = true;
  try {
    const res = await api('/deposits', {method: 'POST', body: JSON.stringify({
      amount: document.getElementById('amount').value
    })});
    if (!res.ok) alert((await res.json()).error);
  } finally {
    fieldset.disabled = false;
  }
  refreshCredits();
  pollNotification();
});

document.getElementById('play').addEventListener('click', async () => {
  const res = await api('/plays', {method: 'POST'});
  if (!res.ok) alert((await res.json()).error);
  refreshCredits();
});

document.getElementById('signout').addEventListener('click', async () => {
  await api('/session', {method: 'DELETE'});
  localStorage.removeItem('token');
  render();
});

render();
setInterval(pollNotification, 1000);
</script>
</body>
</html>
`))

type indexData struct {
	ContractID  string
	NetworkName string
	WalletURL   string
}

func (h *Handler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, indexData{
		ContractID:  h.contract,
		NetworkName: h.network.Name,
		WalletURL:   h.network.WalletURL,
	})
	if err != nil {
		h.log.Error("render index", zap.Error(err))
	}
}
